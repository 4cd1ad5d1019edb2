// Package memory is an in-process store with the same semantics as the
// SQLite store. Nothing survives the process.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"coursecoach/internal/domain"
	"coursecoach/internal/store"
)

// Storage keeps every record in memory behind one RWMutex.
type Storage struct {
	mu          sync.RWMutex
	progress    *domain.Progress
	drafts      map[string]string
	attempts    []domain.Attempt
	chatTurns   []domain.ChatTurn
	missions    []domain.RevisionMission
	nextAttempt int64
	nextMission int64
	now         func() time.Time
}

var (
	_ domain.Store         = (*Storage)(nil)
	_ domain.ProgressStore = (*Storage)(nil)
)

func NewStorage() *Storage {
	return &Storage{
		drafts: make(map[string]string),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func cloneProgress(p domain.Progress) domain.Progress {
	p.UnlockedUnits = slices.Clone(p.UnlockedUnits)
	attempts := make(map[string]int, len(p.Attempts))
	for k, v := range p.Attempts {
		attempts[k] = v
	}
	best := make(map[string]int, len(p.BestScoreByUnit))
	for k, v := range p.BestScoreByUnit {
		best[k] = v
	}
	p.Attempts, p.BestScoreByUnit = attempts, best
	return p
}

func (s *Storage) LoadProgress(_ context.Context, unitIDs []string) (domain.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.progress == nil {
		p := domain.NewProgress(unitIDs, s.now())
		s.progress = &p
		return cloneProgress(p), nil
	}
	p := cloneProgress(*s.progress)
	p.Reconcile(unitIDs)
	p.LastOpenedAt = s.now()
	stored := cloneProgress(p)
	s.progress = &stored
	return p, nil
}

func (s *Storage) SaveProgress(_ context.Context, p domain.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := cloneProgress(p)
	s.progress = &stored
	return nil
}

func (s *Storage) SaveDraft(_ context.Context, unitID, draft string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[unitID] = draft
	return nil
}

func (s *Storage) Draft(_ context.Context, unitID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.drafts[unitID], nil
}

func (s *Storage) SaveAttempt(_ context.Context, unitID, draft string, report domain.FeedbackReport) (domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextAttempt++
	a := domain.Attempt{
		ID:           s.nextAttempt,
		UnitID:       unitID,
		Draft:        draft,
		OverallScore: report.OverallScore,
		Report:       report,
		CreatedAt:    s.now(),
	}
	s.attempts = append(s.attempts, a)
	return a, nil
}

// newestFirst walks items backwards, keeping those matching keep, up to limit.
func newestFirst[T any](items []T, keep func(T) bool, limit int) []T {
	var out []T
	for i := len(items) - 1; i >= 0; i-- {
		if !keep(items[i]) {
			continue
		}
		out = append(out, items[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (s *Storage) Attempts(_ context.Context, unitID string, limit int) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newestFirst(s.attempts, func(a domain.Attempt) bool { return a.UnitID == unitID }, limit), nil
}

func (s *Storage) LatestReport(ctx context.Context, unitID string) (domain.FeedbackReport, error) {
	attempts, _ := s.Attempts(ctx, unitID, 1)
	if len(attempts) == 0 {
		return domain.FeedbackReport{}, store.ErrNotFound
	}
	return attempts[0].Report, nil
}

func (s *Storage) SaveChatTurn(_ context.Context, turn domain.ChatTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	turn.Citations = slices.Clone(turn.Citations)
	if turn.Citations == nil {
		turn.Citations = []string{}
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = s.now()
	}
	s.chatTurns = append(s.chatTurns, turn)
	return nil
}

func (s *Storage) ChatTurns(_ context.Context, unitID string, limit int) ([]domain.ChatTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newestFirst(s.chatTurns, func(t domain.ChatTurn) bool { return t.UnitID == unitID }, limit), nil
}

func (s *Storage) SaveMission(_ context.Context, m domain.RevisionMission) (domain.RevisionMission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMission++
	id := s.nextMission
	m.ID = &id
	m.Checklist = slices.Clone(m.Checklist)
	if m.Status == "" {
		m.Status = domain.MissionActive
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	s.missions = append(s.missions, m)
	return m, nil
}

func (s *Storage) ActiveMission(_ context.Context, unitID string) (*domain.RevisionMission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found := newestFirst(s.missions, func(m domain.RevisionMission) bool {
		return m.UnitID == unitID && m.Status == domain.MissionActive
	}, 1)
	if len(found) == 0 {
		return nil, nil
	}
	m := found[0]
	m.Checklist = slices.Clone(m.Checklist)
	return &m, nil
}

func (s *Storage) CompleteMission(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.missions {
		if m := &s.missions[i]; m.ID != nil && *m.ID == id {
			now := s.now()
			m.Status = domain.MissionCompleted
			m.CompletedAt = &now
			return nil
		}
	}
	return fmt.Errorf("complete mission %d: %w", id, store.ErrNotFound)
}

func (s *Storage) SupersedeActiveMissions(_ context.Context, unitID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.missions {
		if m := &s.missions[i]; m.UnitID == unitID && m.Status == domain.MissionActive {
			m.Status = domain.MissionSuperseded
			n++
		}
	}
	return n, nil
}
