package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursecoach/internal/domain"
	"coursecoach/internal/store"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "state", "coursecoach.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func report(score int) domain.FeedbackReport {
	return domain.FeedbackReport{
		OverallScore: score,
		RubricScores: map[string]int{
			domain.DimConceptApplication: 60, domain.DimNarrativeEffectiveness: 62,
			domain.DimLanguagePrecision: 58, domain.DimRevisionReadiness: 64,
		},
		Strengths:    []string{"Good control (p.16)"},
		CraftRisks:   []string{"Needs work (p.16)"},
		RevisionPlan: []string{"Revise a little (p.16)"},
	}
}

func mission(unitID string, attemptID int64) domain.RevisionMission {
	return domain.RevisionMission{
		UnitID:         unitID,
		AttemptID:      attemptID,
		FocusDimension: domain.DimLanguagePrecision,
		Title:          "Mission: Strengthen Language Precision",
		Instructions:   "Tighten language choices and remove abstraction. (p.116)",
		Checklist: []string{
			"Rewrite one paragraph for precision. (p.116)",
			"Replace one abstract sentence with sensory detail. (p.116)",
			"Done when the revision reads clearly in one perspective. (p.116)",
		},
		Status: domain.MissionActive,
	}
}

func TestDraftRoundTrip(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	got, err := s.Draft(ctx, "0")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.SaveDraft(ctx, "0", "First draft"))
	require.NoError(t, s.SaveDraft(ctx, "0", "Second draft"))
	got, err = s.Draft(ctx, "0")
	require.NoError(t, err)
	assert.Equal(t, "Second draft", got)
}

func TestProgressRoundTrip(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	p, err := s.LoadProgress(ctx, []string{"0", "1"})
	require.NoError(t, err)
	assert.Equal(t, "0", p.CurrentUnitID)
	assert.Equal(t, []string{"0"}, p.UnlockedUnits)

	p.CurrentUnitID = "1"
	p.UnlockedUnits = []string{"0", "1"}
	p.BestScoreByUnit = map[string]int{"0": 88}
	p.Attempts = map[string]int{"0": 2}
	require.NoError(t, s.SaveProgress(ctx, p))

	reloaded, err := s.LoadProgress(ctx, []string{"0", "1"})
	require.NoError(t, err)
	assert.Equal(t, "1", reloaded.CurrentUnitID)
	assert.Equal(t, []string{"0", "1"}, reloaded.UnlockedUnits)
	assert.Equal(t, map[string]int{"0": 88}, reloaded.BestScoreByUnit)
	assert.Equal(t, map[string]int{"0": 2}, reloaded.Attempts)

	shrunk, err := s.LoadProgress(ctx, []string{"0"})
	require.NoError(t, err)
	assert.Equal(t, []string{"0"}, shrunk.UnlockedUnits)
	assert.Equal(t, "0", shrunk.CurrentUnitID)
}

func TestAttemptsNewestFirst(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	first, err := s.SaveAttempt(ctx, "0", "Draft one", report(82))
	require.NoError(t, err)
	_, err = s.SaveAttempt(ctx, "0", "Draft two", report(87))
	require.NoError(t, err)
	_, err = s.SaveAttempt(ctx, "1", "Other unit", report(10))
	require.NoError(t, err)

	all, err := s.Attempts(ctx, "0", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Draft two", all[0].Draft)
	assert.Equal(t, first.ID, all[1].ID)
	assert.Equal(t, report(82), all[1].Report)

	latest, err := s.LatestReport(ctx, "0")
	require.NoError(t, err)
	assert.Equal(t, 87, latest.OverallScore)

	_, err = s.LatestReport(ctx, "7")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestChatTurns(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	require.NoError(t, s.SaveChatTurn(ctx, domain.ChatTurn{UnitID: "1", Question: "q1", Answer: "a1", Citations: []string{"p.16"}}))
	require.NoError(t, s.SaveChatTurn(ctx, domain.ChatTurn{UnitID: "1", Question: "q2", Answer: "a2"}))

	turns, err := s.ChatTurns(ctx, "1", 1)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "q2", turns[0].Question)
	assert.Equal(t, []string{}, turns[0].Citations)

	turns, err = s.ChatTurns(ctx, "1", 0)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, []string{"p.16"}, turns[1].Citations)
	assert.False(t, turns[1].CreatedAt.IsZero())
}

func TestChatTurnsToleratesLegacyNullCitations(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	_, err := s.db.ExecContext(ctx, "INSERT INTO chat_turns (unit_id, question, answer, created_at, citations) VALUES ('1', 'q', 'a', '2024-01-01T00:00:00Z', NULL)")
	require.NoError(t, err)

	turns, err := s.ChatTurns(ctx, "1", 0)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, []string{}, turns[0].Citations)
}

func TestMissionLifecycle(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	active, err := s.ActiveMission(ctx, "1")
	require.NoError(t, err)
	assert.Nil(t, active)

	saved, err := s.SaveMission(ctx, mission("1", 3))
	require.NoError(t, err)
	require.NotNil(t, saved.ID)

	active, err = s.ActiveMission(ctx, "1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, int64(3), active.AttemptID)
	assert.Equal(t, domain.MissionActive, active.Status)
	assert.Equal(t, mission("1", 3).Checklist, active.Checklist)

	require.NoError(t, s.CompleteMission(ctx, *saved.ID))
	active, err = s.ActiveMission(ctx, "1")
	require.NoError(t, err)
	assert.Nil(t, active)

	_, err = s.SaveMission(ctx, mission("1", 4))
	require.NoError(t, err)
	n, err := s.SupersedeActiveMissions(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	active, err = s.ActiveMission(ctx, "1")
	require.NoError(t, err)
	assert.Nil(t, active)

	assert.ErrorIs(t, s.CompleteMission(ctx, 999), store.ErrNotFound)
}

func TestConcurrentAttemptWrites(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.SaveAttempt(ctx, "0", "draft", report(50))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := s.Attempts(ctx, "0", 0)
	require.NoError(t, err)
	assert.Len(t, all, 20)
}
