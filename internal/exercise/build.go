// Package exercise builds the core and stretch practice prompts of each unit
// and keeps them in a cache file next to the lesson packs.
package exercise

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"coursecoach/internal/domain"
)

const (
	maxDirectives     = 3
	minDirectiveChars = 31
	coreMinutes       = 30
	stretchMinutes    = 50
)

var (
	directiveRe = regexp.MustCompile(`(?i)\b(write|describe|try|compose|draft|exercise)\b`)
	spaceRe     = regexp.MustCompile(`\s+`)
)

var constraints = []string{
	"Keep the prompt strictly in the craft scope of this unit only.",
	"Use only one clear narrative line, no essay-length analysis.",
	"Do not summarize the book text; produce your own original scene/paragraph.",
}

var selfCheck = []string{
	"Does it use the unit's core technique in at least two places?",
	"Does word choice create concrete imagery tied to setting or mood?",
	"Is perspective, form, or rhythm clearly controlled?",
}

type directive struct {
	text     string
	citation string
}

// directives returns up to maxDirectives sentences that read like practice
// instructions, in chunk order.
func directives(chunks []domain.Chunk) []directive {
	var out []directive
	for _, ch := range chunks {
		citation := ch.Citation
		if citation == "" {
			citation = domain.FormatCitation(ch.Page)
		}
		for _, line := range strings.Split(ch.Text, ".") {
			candidate := strings.TrimSpace(spaceRe.ReplaceAllString(line, " "))
			if utf8.RuneCountInString(candidate) < minDirectiveChars || !directiveRe.MatchString(candidate) {
				continue
			}
			out = append(out, directive{text: strings.Trim(candidate, "- "), citation: citation})
			if len(out) == maxDirectives {
				return out
			}
		}
	}
	return out
}

// Build returns the core and stretch exercises of unit. Directive sentences
// from the unit text take precedence; without any, the first learning
// objective seeds the core exercise.
func Build(unit domain.CourseUnit, chunks []domain.Chunk) []domain.Exercise {
	found := directives(chunks)
	if len(found) > 0 {
		core := makeExercise(unit, domain.ExerciseCore, found[0].text, domain.ExerciseSourceBook, found[0].citation)
		second := directive{
			text:     "Use deeper perspective shifts than in: " + found[0].text,
			citation: found[0].citation,
		}
		if len(found) > 1 {
			second = found[1]
		}
		stretch := makeExercise(unit, domain.ExerciseStretch, second.text, domain.ExerciseSourceBook, second.citation)
		return []domain.Exercise{core, stretch}
	}

	core := makeExercise(unit, domain.ExerciseCore, defaultObjective(unit), domain.ExerciseSourceUnit, "")
	stretch := makeExercise(unit, domain.ExerciseStretch,
		"Push the core objective into a tougher constraint: include at least one deliberate contradiction, uncertainty, or unreliability.",
		domain.ExerciseSourceUnit, "")
	return []domain.Exercise{core, stretch}
}

func defaultObjective(unit domain.CourseUnit) string {
	if len(unit.LearningObjectives) > 0 {
		return unit.LearningObjectives[0]
	}
	return fmt.Sprintf("Practice applying the core principle in %s.", unit.Title)
}

func makeExercise(unit domain.CourseUnit, kind domain.ExerciseKind, objective, sourceMode, citation string) domain.Exercise {
	minutes := coreMinutes
	if kind == domain.ExerciseStretch {
		minutes = stretchMinutes
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Unit %s (%s) %s exercise\n", unit.ID, unit.Title, kind)
	fmt.Fprintf(&b, "Objective: %s\n\n", objective)
	b.WriteString("Instructions:\n")
	b.WriteString("- Write a short practice piece (2-4 paragraphs).\n")
	b.WriteString("- Use concrete details and keep all choices motivated by scene purpose.\n\n")
	b.WriteString("Constraints:\n")
	for _, c := range constraints {
		b.WriteString("- " + c + "\n")
	}
	fmt.Fprintf(&b, "\nEstimated time: %d minutes\n\n", minutes)
	b.WriteString("Self-check list:\n")
	for _, c := range selfCheck {
		b.WriteString("- " + c + "\n")
	}
	b.WriteString("\nWhat rubric will prioritize:\n")
	b.WriteString("- Concept application, narrative effectiveness, language control, revision clarity.")

	return domain.Exercise{
		UnitID:          unit.ID,
		Kind:            kind,
		SourceMode:      sourceMode,
		Objective:       objective,
		Prompt:          b.String(),
		SuccessCriteria: append([]string(nil), selfCheck...),
		TimeboxMinutes:  minutes,
		Citation:        citation,
	}
}

// Complete reports whether exercises hold exactly one core and one stretch
// exercise for unitID.
func Complete(unitID string, exercises []domain.Exercise) bool {
	if len(exercises) != 2 {
		return false
	}
	var core, stretch int
	for _, e := range exercises {
		if e.UnitID != unitID || strings.TrimSpace(e.Prompt) == "" {
			return false
		}
		switch e.Kind {
		case domain.ExerciseCore:
			core++
		case domain.ExerciseStretch:
			stretch++
		}
	}
	return core == 1 && stretch == 1
}

// ByKind returns the exercise of kind, if present.
func ByKind(exercises []domain.Exercise, kind domain.ExerciseKind) (domain.Exercise, bool) {
	for _, e := range exercises {
		if e.Kind == kind {
			return e, true
		}
	}
	return domain.Exercise{}, false
}
