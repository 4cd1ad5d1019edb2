// Package tui is the Bubble Tea console for chatting with the course coach.
package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"coursecoach/internal/domain"
	"coursecoach/internal/ranking"
)

// CoachPort is the TUI-facing subset of the course service.
type CoachPort interface {
	Ask(ctx context.Context, unitID, question string) (domain.CoachAnswer, error)
	Exercises(ctx context.Context, unitID string) ([]domain.Exercise, error)
}

// UnitLookup resolves unit ids typed at the ":unit" command.
type UnitLookup interface {
	ByID(id string) (domain.CourseUnit, bool)
}

type exchange struct {
	question string
	answer   domain.CoachAnswer
}

// Model is the Bubble Tea model for the coach console.
type Model struct {
	ctx      context.Context
	service  CoachPort
	units    UnitLookup
	unit     domain.CourseUnit
	input    textinput.Model
	viewport viewport.Model
	turns    []exchange
	exercise *domain.Exercise
	status   string
	cursor   int
	ready    bool
}

// New creates a console bound to unit.
func New(ctx context.Context, service CoachPort, units UnitLookup, unit domain.CourseUnit) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about this unit, :exercise [core|stretch] or :unit <id>"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		ctx:      ctx,
		service:  service,
		units:    units,
		unit:     unit,
		input:    ti,
		viewport: vp,
		status:   "Ready. Ask a question about the unit.",
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ah := answerBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header, unit line, status, spacer
		vh := max(3, msg.Height-reserved)
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-ah)
		m.viewport.SetContent(m.renderCurrent())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			if line == "" {
				break
			}
			m.input.SetValue("")
			if id, ok := strings.CutPrefix(line, ":unit"); ok {
				m.switchUnit(strings.TrimSpace(id))
			} else if kind, ok := strings.CutPrefix(line, ":exercise"); ok {
				m.showExercise(strings.TrimSpace(kind))
			} else {
				m.ask(line)
			}
			m.viewport.SetContent(m.renderCurrent())
			return m, nil
		case "down":
			if len(m.turns) > 0 {
				m.exercise = nil
				m.cursor = (m.cursor + 1) % len(m.turns)
				m.viewport.SetContent(m.renderCurrent())
				return m, nil
			}
		case "up":
			if len(m.turns) > 0 {
				m.exercise = nil
				m.cursor = (m.cursor - 1 + len(m.turns)) % len(m.turns)
				m.viewport.SetContent(m.renderCurrent())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) ask(question string) {
	ans, err := m.service.Ask(m.ctx, m.unit.ID, question)
	if err != nil {
		m.status = "Error: " + err.Error()
		return
	}
	m.exercise = nil
	m.turns = append(m.turns, exchange{question: question, answer: ans})
	m.cursor = len(m.turns) - 1
	if ans.IsRefusal {
		m.status = "Out of scope for this unit."
		return
	}
	m.status = fmt.Sprintf("Answered with %s (confidence %.2f)", strings.Join(ans.Citations, ", "), ans.Confidence)
}

func (m *Model) switchUnit(id string) {
	u, ok := m.units.ByID(id)
	if !ok {
		m.status = fmt.Sprintf("Unknown unit %q", id)
		return
	}
	m.unit = u
	m.turns = nil
	m.exercise = nil
	m.cursor = 0
	m.status = "Switched to unit " + u.ID
}

func (m *Model) showExercise(kind string) {
	if kind == "" {
		kind = string(domain.ExerciseCore)
	}
	exercises, err := m.service.Exercises(m.ctx, m.unit.ID)
	if err != nil {
		m.status = "Error: " + err.Error()
		return
	}
	for _, e := range exercises {
		if string(e.Kind) == kind {
			m.exercise = &e
			m.status = fmt.Sprintf("%s exercise, %d minutes", e.Kind, e.TimeboxMinutes)
			return
		}
	}
	m.status = fmt.Sprintf("No %s exercise for unit %s", kind, m.unit.ID)
}

// View renders the console.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Course Coach")
	unit := dimStyle.Render(fmt.Sprintf("Unit %s: %s (pp. %d-%d)", m.unit.ID, m.unit.Title, m.unit.StartPage, m.unit.EndPage))
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	body := answerBoxStyle.Render(m.viewport.View())
	return header + "\n" + unit + "\n" + body + "\n" + input + "\n" + status
}

func (m Model) renderCurrent() string {
	if m.exercise != nil {
		var b strings.Builder
		b.WriteString(m.exercise.Prompt)
		if m.exercise.Citation != "" {
			fmt.Fprintf(&b, "\n\n%s", citationStyle.Render("["+m.exercise.Citation+"]"))
		}
		return b.String()
	}
	if len(m.turns) == 0 {
		return "No questions yet."
	}
	t := m.turns[m.cursor]
	var b strings.Builder
	fmt.Fprintf(&b, "Q %d/%d: %s\n\n", m.cursor+1, len(m.turns), t.question)
	b.WriteString(t.answer.Answer)
	for _, ev := range t.answer.Evidence {
		fmt.Fprintf(&b, "\n\n%s %s", citationStyle.Render("["+ev.Citation+"]"), highlightBestSentence(ev.Quote, t.question))
	}
	return b.String()
}

var (
	answerBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	citationStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	sentenceRe     = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

// highlightBestSentence emphasises the sentence of text sharing the most
// tokens with query.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := ranking.Tokenize(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx, bestScore := 0, -1
	for i, s := range sentences {
		_, score := ranking.Overlap(qTokens, ranking.Tokenize(s))
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
	return strings.Join(sentences, " ")
}
