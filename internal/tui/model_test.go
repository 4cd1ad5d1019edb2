package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursecoach/internal/catalog"
	"coursecoach/internal/domain"
)

type fakeCoach struct {
	asked []string
	err   error
}

func (f *fakeCoach) Ask(_ context.Context, unitID, question string) (domain.CoachAnswer, error) {
	f.asked = append(f.asked, unitID+":"+question)
	if f.err != nil {
		return domain.CoachAnswer{}, f.err
	}
	return domain.CoachAnswer{
		Answer:     "From this unit: focus. (p.16)",
		Citations:  []string{"p.16"},
		Evidence:   []domain.Evidence{{Quote: "Focalization matters. Distance too.", Citation: "p.16"}},
		Confidence: 0.74,
	}, nil
}

func (f *fakeCoach) Exercises(_ context.Context, unitID string) ([]domain.Exercise, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []domain.Exercise{
		{UnitID: unitID, Kind: domain.ExerciseCore, Prompt: "Unit " + unitID + " core exercise", TimeboxMinutes: 30, Citation: "p.8"},
		{UnitID: unitID, Kind: domain.ExerciseStretch, Prompt: "Unit " + unitID + " stretch exercise", TimeboxMinutes: 50},
	}, nil
}

func submit(t *testing.T, m Model, line string) Model {
	t.Helper()
	m.input.SetValue(line)
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model)
}

func newModel(svc CoachPort) Model {
	cat := catalog.Default()
	unit, _ := cat.ByID(cat.IDs()[0])
	m := New(context.Background(), svc, cat, unit)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model)
}

func TestAskAppendsTurn(t *testing.T) {
	svc := &fakeCoach{}
	m := submit(t, newModel(svc), "What is focalization?")

	require.Len(t, m.turns, 1)
	assert.Equal(t, []string{m.unit.ID + ":What is focalization?"}, svc.asked)
	assert.Contains(t, m.status, "p.16")
	assert.Empty(t, m.input.Value())
	assert.Contains(t, m.renderCurrent(), "[p.16]")
}

func TestAskErrorShowsStatus(t *testing.T) {
	m := submit(t, newModel(&fakeCoach{err: errors.New("boom")}), "anything")
	assert.Empty(t, m.turns)
	assert.Equal(t, "Error: boom", m.status)
}

func TestSwitchUnit(t *testing.T) {
	m := newModel(&fakeCoach{})
	ids := catalog.Default().IDs()

	m = submit(t, m, ":unit "+ids[1])
	assert.Equal(t, ids[1], m.unit.ID)

	m = submit(t, m, ":unit nope")
	assert.Equal(t, ids[1], m.unit.ID)
	assert.Contains(t, m.status, "Unknown unit")
}

func TestHighlightBestSentence(t *testing.T) {
	plain := highlightBestSentence("", "query")
	assert.Empty(t, plain)
	out := highlightBestSentence("Cats sleep. Focalization shapes perception.", "focalization")
	assert.Contains(t, out, "Cats sleep.")
	assert.Contains(t, out, "Focalization shapes perception.")
}

func TestShowExercise(t *testing.T) {
	m := newModel(&fakeCoach{})

	m = submit(t, m, ":exercise")
	require.NotNil(t, m.exercise)
	assert.Equal(t, domain.ExerciseCore, m.exercise.Kind)
	assert.Contains(t, m.renderCurrent(), "core exercise")
	assert.Contains(t, m.renderCurrent(), "[p.8]")

	m = submit(t, m, ":exercise stretch")
	assert.Contains(t, m.renderCurrent(), "stretch exercise")
	assert.Equal(t, "stretch exercise, 50 minutes", m.status)

	m = submit(t, m, ":exercise bonus")
	assert.Contains(t, m.status, "No bonus exercise")

	m = submit(t, m, "What is focalization?")
	assert.Nil(t, m.exercise)
	assert.Contains(t, m.renderCurrent(), "Q 1/1")
}
