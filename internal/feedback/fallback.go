package feedback

import (
	"regexp"
	"strings"

	"coursecoach/internal/domain"
)

var lineSplitRe = regexp.MustCompile(`\n+`)

var craftSignals = []string{"show", "scene", "voice", "tone"}

const (
	maxNoteLines   = 3
	excerptChars   = 120
	developedChars = 200
	arcLines       = 5
)

// signals are the cheap draft measurements behind the fallback rubric.
type signals struct {
	text          string
	lines         []string
	objectiveHits int
	uniqueWords   int
	craft         bool
}

func measure(unit domain.CourseUnit, draft string) signals {
	text := strings.TrimSpace(draft)
	lower := strings.ToLower(text)
	s := signals{text: text}

	for _, objective := range unit.LearningObjectives {
		for _, term := range strings.Fields(objective) {
			if strings.Contains(lower, strings.ToLower(term)) {
				s.objectiveHits++
			}
		}
	}
	for _, line := range lineSplitRe.Split(text, -1) {
		if line = strings.TrimSpace(line); line != "" {
			s.lines = append(s.lines, line)
		}
	}
	unique := make(map[string]struct{})
	for _, w := range strings.Fields(text) {
		unique[w] = struct{}{}
	}
	s.uniqueWords = len(unique)
	for _, w := range craftSignals {
		if strings.Contains(lower, w) {
			s.craft = true
			break
		}
	}
	return s
}

func (s signals) rubric() map[string]int {
	narrative := 30 + min(120, len(s.lines)*8)
	if s.text != "" {
		narrative += 20
	}
	language := 35 + int(float64(s.uniqueWords)*0.7)
	if s.craft {
		language += 10
	}
	revision := 20 + len(s.lines)*6
	if len(s.text) > developedChars {
		revision += 15
	}
	return map[string]int{
		domain.DimConceptApplication:     min(100, 35+s.objectiveHits),
		domain.DimNarrativeEffectiveness: min(100, narrative),
		domain.DimLanguagePrecision:      min(100, language),
		domain.DimRevisionReadiness:      min(100, revision),
	}
}

func cite(text, citation string) string {
	return text + " (" + citation + ")"
}

// fallbackReport scores a draft from explainable text signals.
func fallbackReport(unit domain.CourseUnit, draft string, chunks []domain.Chunk, t domain.Thresholds) domain.FeedbackReport {
	s := measure(unit, draft)
	citation := domain.FirstCitation(chunks, unit.StartPage)
	rubric := s.rubric()
	overall := domain.WeightedScore(rubric)

	var notes []domain.LineNote
	for i, line := range s.lines {
		if i == maxNoteLines {
			break
		}
		notes = append(notes, noteFor(i+1, domain.Truncate(line, excerptChars), citation))
	}
	if len(notes) == 0 {
		notes = []domain.LineNote{placeholderNote(unit, citation)}
	}

	return domain.FeedbackReport{
		OverallScore:   overall,
		RubricScores:   rubric,
		Strengths:      strengthsFor(s, citation),
		CraftRisks:     risksFor(s, citation),
		LineNotes:      notes,
		RevisionPlan:   planFor(unit, s, citation),
		UnlockEligible: t.Unlocks(overall),
	}
}

func noteFor(lineNumber int, excerpt, citation string) domain.LineNote {
	return domain.LineNote{
		LineNumber:  lineNumber,
		TextExcerpt: excerpt,
		Comment:     cite("Check if this line supports the unit goals more directly.", citation),
		Citation:    citation,
	}
}

func placeholderNote(unit domain.CourseUnit, citation string) domain.LineNote {
	title := unit.Title
	if title == "" {
		title = "current unit"
	}
	return domain.LineNote{
		LineNumber:  1,
		TextExcerpt: title,
		Comment:     cite("Start by grounding scene details in the unit's topic.", citation),
		Citation:    citation,
	}
}

func strengthsFor(s signals, citation string) []string {
	var out []string
	if s.objectiveHits > 0 {
		out = append(out, cite("The draft engages the unit objectives in its own wording.", citation))
	}
	if s.craft {
		out = append(out, cite("Craft vocabulary shows awareness of scene and voice choices.", citation))
	}
	if len(s.lines) >= arcLines {
		out = append(out, cite("The draft has enough lines to build a visible arc.", citation))
	}
	if len(out) == 0 {
		out = append(out, cite("The draft shows craft effort and can be improved by adding precise scene anchors.", citation))
	}
	return out
}

func risksFor(s signals, citation string) []string {
	var out []string
	if s.objectiveHits == 0 {
		out = append(out, cite("The draft does not yet enact the unit objectives; anchor one line to them.", citation))
	}
	if !s.craft {
		out = append(out, cite("Few concrete scene signals; replace summary with observable action.", citation))
	}
	if len(s.text) <= developedChars {
		out = append(out, cite("The draft is short, so revision choices have little room to show.", citation))
	}
	if len(out) == 0 {
		out = append(out, cite("Some transitions are broad and may blur focus; tighten around concrete moments.", citation))
	}
	return out
}

func planFor(unit domain.CourseUnit, s signals, citation string) []string {
	first := "Cut one generalized sentence and replace with scene detail."
	if s.objectiveHits == 0 && len(unit.LearningObjectives) > 0 {
		first = "Rewrite one line so it clearly applies: " + strings.TrimRight(unit.LearningObjectives[0], ".") + "."
	}
	return []string{
		cite(first, citation),
		cite("Add one more internal beat that changes the reader's expectation.", citation),
		cite("Read once and mark lines that are not tied to action or perspective.", citation),
	}
}
