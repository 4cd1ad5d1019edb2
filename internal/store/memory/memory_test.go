package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursecoach/internal/domain"
	"coursecoach/internal/store"
)

func TestProgressIsCopied(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()

	p, err := s.LoadProgress(ctx, []string{"0", "1"})
	require.NoError(t, err)
	p.UnlockedUnits = append(p.UnlockedUnits, "1")
	p.Attempts["0"] = 3

	again, err := s.LoadProgress(ctx, []string{"0", "1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"0"}, again.UnlockedUnits)
	assert.Empty(t, again.Attempts)

	require.NoError(t, s.SaveProgress(ctx, p))
	again, err = s.LoadProgress(ctx, []string{"0", "1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1"}, again.UnlockedUnits)
	assert.Equal(t, 3, again.Attempts["0"])
}

func TestHistoryNewestFirst(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()

	_, _ = s.SaveAttempt(ctx, "0", "one", domain.FeedbackReport{OverallScore: 10})
	_, _ = s.SaveAttempt(ctx, "1", "other", domain.FeedbackReport{OverallScore: 20})
	_, _ = s.SaveAttempt(ctx, "0", "two", domain.FeedbackReport{OverallScore: 30})

	got, err := s.Attempts(ctx, "0", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "two", got[0].Draft)
	assert.Equal(t, int64(1), got[1].ID)

	r, err := s.LatestReport(ctx, "0")
	require.NoError(t, err)
	assert.Equal(t, 30, r.OverallScore)
	_, err = s.LatestReport(ctx, "5")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.SaveChatTurn(ctx, domain.ChatTurn{UnitID: "0", Question: "a"}))
	require.NoError(t, s.SaveChatTurn(ctx, domain.ChatTurn{UnitID: "0", Question: "b", Citations: []string{"p.7"}}))
	turns, err := s.ChatTurns(ctx, "0", 1)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "b", turns[0].Question)
}

func TestMissionLifecycle(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()

	saved, err := s.SaveMission(ctx, domain.RevisionMission{UnitID: "1", AttemptID: 3, Checklist: []string{"a", "b", "Done when c"}})
	require.NoError(t, err)
	require.NotNil(t, saved.ID)

	active, err := s.ActiveMission(ctx, "1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, domain.MissionActive, active.Status)

	require.NoError(t, s.CompleteMission(ctx, *saved.ID))
	active, err = s.ActiveMission(ctx, "1")
	require.NoError(t, err)
	assert.Nil(t, active)

	_, _ = s.SaveMission(ctx, domain.RevisionMission{UnitID: "1", AttemptID: 4})
	n, err := s.SupersedeActiveMissions(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.ErrorIs(t, s.CompleteMission(ctx, 42), store.ErrNotFound)
}
