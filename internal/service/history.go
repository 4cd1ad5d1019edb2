package service

import (
	"context"
	"errors"
	"slices"

	"coursecoach/internal/domain"
	"coursecoach/internal/store"
)

// ActiveMission returns the unit's active revision mission, or nil.
func (s *CourseService) ActiveMission(ctx context.Context, unitID string) (*domain.RevisionMission, error) {
	if _, err := s.unit(unitID); err != nil {
		return nil, err
	}
	return s.repo.ActiveMission(ctx, unitID)
}

// CompleteMission marks a mission done.
func (s *CourseService) CompleteMission(ctx context.Context, id int64) error {
	return s.repo.CompleteMission(ctx, id)
}

// RebuildMission builds a fresh mission from the unit's latest report,
// superseding any active one. It needs at least one prior attempt.
func (s *CourseService) RebuildMission(ctx context.Context, unitID string) (domain.RevisionMission, error) {
	unit, err := s.unit(unitID)
	if err != nil {
		return domain.RevisionMission{}, err
	}
	unlock := s.submitLocks.Lock(unitID)
	defer unlock()

	attempts, err := s.repo.Attempts(ctx, unitID, 1)
	if err != nil {
		return domain.RevisionMission{}, err
	}
	if len(attempts) == 0 {
		return domain.RevisionMission{}, store.ErrNotFound
	}
	latest := attempts[0]
	chunks, err := s.unitChunks(ctx, unitID)
	if err != nil {
		return domain.RevisionMission{}, err
	}
	if _, err := s.repo.SupersedeActiveMissions(ctx, unitID); err != nil {
		return domain.RevisionMission{}, err
	}
	m := s.engines.Revision.Build(ctx, unit, latest.Report, latest.Draft, chunks)
	m.AttemptID = latest.ID
	return s.repo.SaveMission(ctx, m)
}

// LatestReport returns the most recent feedback for a unit, or nil if the
// unit has no attempts.
func (s *CourseService) LatestReport(ctx context.Context, unitID string) (*domain.FeedbackReport, error) {
	if _, err := s.unit(unitID); err != nil {
		return nil, err
	}
	r, err := s.repo.LatestReport(ctx, unitID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// History is a unit's recent activity, newest first.
type History struct {
	UnitID    string            `json:"unit_id"`
	Attempts  []domain.Attempt  `json:"attempts"`
	ChatTurns []domain.ChatTurn `json:"chat_turns"`
}

// History returns up to limit attempts and chat turns for a unit.
func (s *CourseService) History(ctx context.Context, unitID string, limit int) (History, error) {
	if _, err := s.unit(unitID); err != nil {
		return History{}, err
	}
	attempts, err := s.repo.Attempts(ctx, unitID, limit)
	if err != nil {
		return History{}, err
	}
	turns, err := s.repo.ChatTurns(ctx, unitID, limit)
	if err != nil {
		return History{}, err
	}
	return History{UnitID: unitID, Attempts: attempts, ChatTurns: turns}, nil
}

// PortfolioUnit is one unit's attempts, oldest first.
type PortfolioUnit struct {
	UnitID    string           `json:"unit_id"`
	Title     string           `json:"title"`
	BestScore int              `json:"best_score"`
	Attempts  []domain.Attempt `json:"attempts"`
}

// Portfolio collects every unit's attempts in course order.
type Portfolio struct {
	Progress domain.Progress `json:"progress"`
	Units    []PortfolioUnit `json:"units"`
}

// ExportPortfolio gathers all attempts for export.
func (s *CourseService) ExportPortfolio(ctx context.Context) (Portfolio, error) {
	progress, err := s.Progress(ctx)
	if err != nil {
		return Portfolio{}, err
	}
	out := Portfolio{Progress: progress}
	for _, u := range s.catalog.Units() {
		attempts, err := s.repo.Attempts(ctx, u.ID, 0)
		if err != nil {
			return Portfolio{}, err
		}
		slices.Reverse(attempts)
		out.Units = append(out.Units, PortfolioUnit{
			UnitID:    u.ID,
			Title:     u.Title,
			BestScore: progress.BestScoreByUnit[u.ID],
			Attempts:  attempts,
		})
	}
	return out, nil
}
