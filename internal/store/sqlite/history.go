package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"coursecoach/internal/domain"
	"coursecoach/internal/store"
)

// SaveAttempt records a scored draft.
func (s *Store) SaveAttempt(ctx context.Context, unitID, draft string, report domain.FeedbackReport) (domain.Attempt, error) {
	unlock := s.locks.Lock("attempt:" + unitID)
	defer unlock()

	data, err := json.Marshal(report)
	if err != nil {
		return domain.Attempt{}, err
	}
	now := s.now()
	res, err := s.exec(ctx, sq.Insert("attempts").
		Columns("unit_id", "draft", "overall_score", "feedback_json", "created_at").
		Values(unitID, draft, report.OverallScore, string(data), now.Format(timeLayout)))
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("save attempt: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("save attempt: %w", err)
	}
	return domain.Attempt{ID: id, UnitID: unitID, Draft: draft, OverallScore: report.OverallScore, Report: report, CreatedAt: now}, nil
}

// Attempts returns a unit's attempts, newest first. limit <= 0 returns all.
func (s *Store) Attempts(ctx context.Context, unitID string, limit int) ([]domain.Attempt, error) {
	rows, err := s.query(ctx, withLimit(sq.Select("id", "unit_id", "draft", "overall_score", "feedback_json", "created_at").
		From("attempts").Where(sq.Eq{"unit_id": unitID}).OrderBy("id DESC"), limit))
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []domain.Attempt
	for rows.Next() {
		var a domain.Attempt
		var report, created string
		if err := rows.Scan(&a.ID, &a.UnitID, &a.Draft, &a.OverallScore, &report, &created); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		if err := json.Unmarshal([]byte(report), &a.Report); err != nil {
			return nil, fmt.Errorf("decode attempt %d: %w", a.ID, err)
		}
		a.CreatedAt = parseTime(created)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// LatestReport returns the most recent report for a unit, or ErrNotFound.
func (s *Store) LatestReport(ctx context.Context, unitID string) (domain.FeedbackReport, error) {
	attempts, err := s.Attempts(ctx, unitID, 1)
	if err != nil {
		return domain.FeedbackReport{}, err
	}
	if len(attempts) == 0 {
		return domain.FeedbackReport{}, store.ErrNotFound
	}
	return attempts[0].Report, nil
}

// SaveChatTurn appends one coach exchange.
func (s *Store) SaveChatTurn(ctx context.Context, turn domain.ChatTurn) error {
	unlock := s.locks.Lock("chat:" + turn.UnitID)
	defer unlock()

	citations := turn.Citations
	if citations == nil {
		citations = []string{}
	}
	data, err := json.Marshal(citations)
	if err != nil {
		return err
	}
	created := turn.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	_, err = s.exec(ctx, sq.Insert("chat_turns").
		Columns("unit_id", "question", "answer", "created_at", "citations").
		Values(turn.UnitID, turn.Question, turn.Answer, created.Format(timeLayout), string(data)))
	if err != nil {
		return fmt.Errorf("save chat turn: %w", err)
	}
	return nil
}

// ChatTurns returns a unit's chat history, newest first. limit <= 0 returns all.
func (s *Store) ChatTurns(ctx context.Context, unitID string, limit int) ([]domain.ChatTurn, error) {
	rows, err := s.query(ctx, withLimit(sq.Select("unit_id", "question", "answer", "created_at", "citations").
		From("chat_turns").Where(sq.Eq{"unit_id": unitID}).OrderBy("id DESC"), limit))
	if err != nil {
		return nil, fmt.Errorf("query chat turns: %w", err)
	}
	defer rows.Close()

	var out []domain.ChatTurn
	for rows.Next() {
		var t domain.ChatTurn
		var created string
		var citations sql.NullString
		if err := rows.Scan(&t.UnitID, &t.Question, &t.Answer, &created, &citations); err != nil {
			return nil, fmt.Errorf("scan chat turn: %w", err)
		}
		t.CreatedAt = parseTime(created)
		t.Citations = []string{}
		if citations.Valid && citations.String != "" {
			if err := json.Unmarshal([]byte(citations.String), &t.Citations); err != nil {
				t.Citations = []string{}
			}
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// SaveMission stores a mission and returns it with its assigned ID.
func (s *Store) SaveMission(ctx context.Context, m domain.RevisionMission) (domain.RevisionMission, error) {
	unlock := s.locks.Lock("mission:" + m.UnitID)
	defer unlock()

	checklist, err := json.Marshal(m.Checklist)
	if err != nil {
		return domain.RevisionMission{}, err
	}
	if m.Status == "" {
		m.Status = domain.MissionActive
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	var completed any
	if m.CompletedAt != nil {
		completed = m.CompletedAt.Format(timeLayout)
	}
	res, err := s.exec(ctx, sq.Insert("revision_missions").
		Columns("unit_id", "attempt_id", "focus_dimension", "title", "instructions", "checklist_json", "status", "created_at", "completed_at").
		Values(m.UnitID, m.AttemptID, m.FocusDimension, m.Title, m.Instructions, string(checklist), string(m.Status), m.CreatedAt.Format(timeLayout), completed))
	if err != nil {
		return domain.RevisionMission{}, fmt.Errorf("save mission: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.RevisionMission{}, fmt.Errorf("save mission: %w", err)
	}
	m.ID = &id
	return m, nil
}

// ActiveMission returns the newest active mission for a unit, or nil.
func (s *Store) ActiveMission(ctx context.Context, unitID string) (*domain.RevisionMission, error) {
	row, err := s.queryRow(ctx, sq.Select("id", "unit_id", "attempt_id", "focus_dimension", "title", "instructions", "checklist_json", "status", "created_at", "completed_at").
		From("revision_missions").
		Where(sq.Eq{"unit_id": unitID, "status": string(domain.MissionActive)}).
		OrderBy("id DESC").Limit(1))
	if err != nil {
		return nil, err
	}
	var (
		m                  domain.RevisionMission
		id                 int64
		checklist, created string
		status             string
		completed          sql.NullString
	)
	err = row.Scan(&id, &m.UnitID, &m.AttemptID, &m.FocusDimension, &m.Title, &m.Instructions, &checklist, &status, &created, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load active mission: %w", err)
	}
	if err := json.Unmarshal([]byte(checklist), &m.Checklist); err != nil {
		return nil, fmt.Errorf("decode mission %d: %w", id, err)
	}
	m.ID = &id
	m.Status = domain.MissionStatus(status)
	m.CreatedAt = parseTime(created)
	if completed.Valid {
		t := parseTime(completed.String)
		m.CompletedAt = &t
	}
	return &m, nil
}

// CompleteMission marks a mission completed. Unknown IDs yield ErrNotFound.
func (s *Store) CompleteMission(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, sq.Update("revision_missions").
		Set("status", string(domain.MissionCompleted)).
		Set("completed_at", s.now().Format(timeLayout)).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("complete mission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete mission: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("complete mission %d: %w", id, store.ErrNotFound)
	}
	return nil
}

// SupersedeActiveMissions retires every active mission of a unit and
// returns how many were changed.
func (s *Store) SupersedeActiveMissions(ctx context.Context, unitID string) (int, error) {
	unlock := s.locks.Lock("mission:" + unitID)
	defer unlock()

	res, err := s.exec(ctx, sq.Update("revision_missions").
		Set("status", string(domain.MissionSuperseded)).
		Where(sq.Eq{"unit_id": unitID, "status": string(domain.MissionActive)}))
	if err != nil {
		return 0, fmt.Errorf("supersede missions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("supersede missions: %w", err)
	}
	return int(n), nil
}
