package service

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursecoach/internal/catalog"
	"coursecoach/internal/chunker"
	"coursecoach/internal/coach"
	"coursecoach/internal/domain"
	"coursecoach/internal/exercise"
	"coursecoach/internal/feedback"
	"coursecoach/internal/generation"
	"coursecoach/internal/lesson"
	"coursecoach/internal/logging"
	"coursecoach/internal/ranking"
	"coursecoach/internal/revision"
	"coursecoach/internal/store"
	"coursecoach/internal/store/memory"
)

type replyGenerator struct{ reply string }

func (g replyGenerator) Name() string { return "reply" }

func (g replyGenerator) Generate(context.Context, string, domain.GenerateOptions) (string, error) {
	return g.reply, nil
}

const strongReport = `{"overall_score": 92, "rubric_scores": {"concept_application": 95,
"narrative_effectiveness": 90, "language_precision": 90, "revision_readiness": 90},
"strengths": ["Focalization stays tight (p.1)"], "craft_risks": [], "line_notes": [], "revision_plan": ["Trim the ending."]}`

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]domain.CourseUnit{
		{ID: "1", Title: "Narrating", StartPage: 1, EndPage: 2, LearningObjectives: []string{"Track focalization and perspective."}},
		{ID: "2", Title: "Character", StartPage: 3, EndPage: 3, LearningObjectives: []string{"Build character through action."}},
	})
	require.NoError(t, err)
	return cat
}

func testChunks() *chunker.FileSource {
	return chunker.NewFileSource([]domain.Chunk{
		{UnitID: "1", Page: 1, Citation: "p.1", Text: "Focalization filters the scene through one perception. Perspective shapes what the reader sees."},
		{UnitID: "1", Page: 2, Citation: "p.2", Text: "Distance shifts as the narrator zooms in or out of the scene."},
		{UnitID: "2", Page: 3, Citation: "p.3", Text: "Character is revealed through concrete action and choice."},
	})
}

func newService(t *testing.T, feedbackGen domain.Generator, caches Caches) (*CourseService, *memory.Storage) {
	t.Helper()
	log := logging.Nop()
	th := domain.DefaultThresholds()
	var fbAdapter *generation.Adapter
	if feedbackGen != nil {
		fbAdapter = generation.NewAdapter(feedbackGen, time.Second, log)
	}
	repo := memory.NewStorage()
	engines := Engines{
		Coach:    coach.NewEngine(ranking.NewRanker(th, log), nil, log),
		Feedback: feedback.NewEngine(fbAdapter, generation.DefaultProfiles(), th, log),
		Lesson:   lesson.NewEngine(nil, log),
		Revision: revision.NewEngine(nil, log),
	}
	return NewCourseService(testCatalog(t), testChunks(), engines, caches, repo, th, log), repo
}

func TestAskPersistsChatTurn(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t, nil, Caches{})

	ans, err := svc.Ask(ctx, "1", "What does focalization filter?")
	require.NoError(t, err)
	assert.False(t, ans.IsRefusal)
	assert.Equal(t, []string{"p.1"}, ans.Citations)

	refusal, err := svc.Ask(ctx, "1", "What is the bitcoin price today?")
	require.NoError(t, err)
	assert.True(t, refusal.IsRefusal)

	turns, err := repo.ChatTurns(ctx, "1", 0)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, coach.RefusalText, turns[0].Answer)
	assert.Empty(t, turns[0].Citations)
	assert.Equal(t, []string{"p.1"}, turns[1].Citations)
}

func TestUnknownUnit(t *testing.T) {
	svc, _ := newService(t, nil, Caches{})
	_, err := svc.Ask(context.Background(), "9", "focalization?")
	assert.ErrorIs(t, err, ErrUnknownUnit)
	_, err = svc.SubmitDraft(context.Background(), "9", "draft")
	assert.ErrorIs(t, err, ErrUnknownUnit)
}

func TestSubmitDraftBelowThresholdKeepsNextLocked(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t, nil, Caches{})

	sub, err := svc.SubmitDraft(ctx, "1", "A short scene.")
	require.NoError(t, err)
	assert.Less(t, sub.Report.OverallScore, 85)
	assert.Empty(t, sub.Unlocked)
	assert.Equal(t, []string{"1"}, sub.Progress.UnlockedUnits)
	assert.Equal(t, 1, sub.Progress.Attempts["1"])

	require.NotNil(t, sub.Mission.ID)
	assert.Equal(t, sub.Attempt.ID, sub.Mission.AttemptID)
	assert.Equal(t, domain.MissionActive, sub.Mission.Status)

	draft, err := repo.Draft(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "A short scene.", draft)

	_, err = svc.OpenUnit(ctx, "2")
	assert.ErrorIs(t, err, ErrUnitLocked)
}

func TestSubmitDraftUnlocksNextUnit(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, replyGenerator{reply: strongReport}, Caches{})

	sub, err := svc.SubmitDraft(ctx, "1", "She watched the door. The lamp hummed.")
	require.NoError(t, err)
	assert.Equal(t, 92, sub.Report.OverallScore)
	assert.True(t, sub.Report.UnlockEligible)
	assert.Equal(t, "2", sub.Unlocked)
	assert.Equal(t, []string{"1", "2"}, sub.Progress.UnlockedUnits)

	p, err := svc.OpenUnit(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "2", p.CurrentUnitID)
}

func TestResubmitSupersedesMission(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, nil, Caches{})

	first, err := svc.SubmitDraft(ctx, "1", "First try.")
	require.NoError(t, err)
	second, err := svc.SubmitDraft(ctx, "1", "Second try with more detail.")
	require.NoError(t, err)
	assert.NotEqual(t, *first.Mission.ID, *second.Mission.ID)

	active, err := svc.ActiveMission(ctx, "1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, *second.Mission.ID, *active.ID)

	require.NoError(t, svc.CompleteMission(ctx, *active.ID))
	active, err = svc.ActiveMission(ctx, "1")
	require.NoError(t, err)
	assert.Nil(t, active)

	assert.ErrorIs(t, svc.CompleteMission(ctx, 999), store.ErrNotFound)
}

func TestRebuildMissionNeedsAttempt(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, nil, Caches{})

	_, err := svc.RebuildMission(ctx, "1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	sub, err := svc.SubmitDraft(ctx, "1", "A scene.")
	require.NoError(t, err)
	m, err := svc.RebuildMission(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, sub.Attempt.ID, m.AttemptID)
	assert.NotEqual(t, *sub.Mission.ID, *m.ID)
}

func TestHistoryAndPortfolio(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, nil, Caches{})

	report, err := svc.LatestReport(ctx, "1")
	require.NoError(t, err)
	assert.Nil(t, report)

	for _, d := range []string{"one", "two", "three"} {
		_, err := svc.SubmitDraft(ctx, "1", d)
		require.NoError(t, err)
	}
	_, err = svc.Ask(ctx, "1", "How does focalization work?")
	require.NoError(t, err)

	h, err := svc.History(ctx, "1", 2)
	require.NoError(t, err)
	require.Len(t, h.Attempts, 2)
	assert.Equal(t, "three", h.Attempts[0].Draft)
	assert.Len(t, h.ChatTurns, 1)

	report, err = svc.LatestReport(ctx, "1")
	require.NoError(t, err)
	require.NotNil(t, report)

	pf, err := svc.ExportPortfolio(ctx)
	require.NoError(t, err)
	require.Len(t, pf.Units, 2)
	drafts := make([]string, 0, 3)
	for _, a := range pf.Units[0].Attempts {
		drafts = append(drafts, a.Draft)
	}
	assert.Equal(t, []string{"one", "two", "three"}, drafts)
	assert.Empty(t, pf.Units[1].Attempts)
	assert.Equal(t, 3, pf.Progress.Attempts["1"])
}

func TestLessonPackWithCache(t *testing.T) {
	ctx := context.Background()
	log := logging.Nop()
	path := filepath.Join(t.TempDir(), "lessons.json")
	cache := lesson.NewCache(path, "course.pdf", 1200, lesson.NewEngine(nil, log), log)
	svc, _ := newService(t, nil, Caches{Lessons: cache})

	pack, err := svc.LessonPack(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "1", pack.UnitID)
	assert.Len(t, pack.KeyIdeas, domain.KeyIdeaCount)
	for _, idea := range pack.KeyIdeas {
		assert.True(t, idea.Citation == "p.1" || idea.Citation == "p.2", idea.Citation)
	}
	assert.FileExists(t, path)

	packs, err := svc.LessonPacks(ctx)
	require.NoError(t, err)
	assert.Len(t, packs, 2)
	assert.True(t, strings.Contains(packs["2"].Summary, "Character"))
}

func TestLessonPackWithoutCache(t *testing.T) {
	svc, _ := newService(t, nil, Caches{})
	pack, err := svc.LessonPack(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceModeFallback, pack.SourceMode)
	assert.Equal(t, "p.3", pack.KeyIdeas[0].Citation)
}

func TestExercisesWithCache(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "exercises.json")
	svc, _ := newService(t, nil, Caches{Exercises: exercise.NewCache(path, "course.pdf", 1200, logging.Nop())})

	got, err := svc.Exercises(ctx, "2")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.ExerciseCore, got[0].Kind)
	assert.Equal(t, domain.ExerciseStretch, got[1].Kind)
	assert.Equal(t, "Build character through action.", got[0].Objective)
	assert.FileExists(t, path)

	all, err := svc.AllExercises(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.Exercises(ctx, "9")
	assert.ErrorIs(t, err, ErrUnknownUnit)
}

func TestExercisesWithoutCache(t *testing.T) {
	svc, _ := newService(t, nil, Caches{})
	got, err := svc.Exercises(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.ExerciseSourceUnit, got[0].SourceMode)
	assert.Contains(t, got[0].Prompt, "Unit 1 (Narrating) core exercise")
}
