package lesson

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"coursecoach/internal/domain"
)

var (
	rankTokenRe      = regexp.MustCompile(`[a-z]{3,}`)
	sentenceBoundary = regexp.MustCompile(`[.!?]\s+`)
)

const ideaChars = 175

// rankChunks orders chunks by objective-vocabulary overlap, with a small
// bonus for longer passages. Ties keep source order.
func rankChunks(unit domain.CourseUnit, chunks []domain.Chunk) []domain.Chunk {
	terms := make(map[string]struct{})
	for _, objective := range unit.LearningObjectives {
		for _, tok := range rankTokenRe.FindAllString(strings.ToLower(objective), -1) {
			terms[tok] = struct{}{}
		}
	}

	type scored struct {
		chunk domain.Chunk
		score int
	}
	ranked := make([]scored, len(chunks))
	for i, ch := range chunks {
		seen := make(map[string]struct{})
		overlap := 0
		for _, tok := range rankTokenRe.FindAllString(strings.ToLower(ch.Text), -1) {
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			if _, ok := terms[tok]; ok {
				overlap++
			}
		}
		ranked[i] = scored{chunk: ch, score: overlap*6 + min(8, len(ch.Text)/180)}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	out := make([]domain.Chunk, len(ranked))
	for i, s := range ranked {
		out[i] = s.chunk
	}
	return out
}

// firstSentence returns the first sentence of text, capped at n characters.
func firstSentence(text string, n int) string {
	text = strings.TrimSpace(text)
	sentence := text
	if loc := sentenceBoundary.FindStringIndex(text); loc != nil {
		sentence = text[:loc[0]+1]
	}
	sentence = strings.TrimSpace(domain.Truncate(sentence, n))
	if sentence == "" {
		return "Focus on how this unit handles craft choices."
	}
	return sentence
}

func chunkCitation(ch domain.Chunk, unit domain.CourseUnit) string {
	if ch.Page > 0 {
		return domain.FormatCitation(ch.Page)
	}
	return domain.FormatCitation(max(1, unit.StartPage))
}

func (e *Engine) fallbackPack(unit domain.CourseUnit, chunks []domain.Chunk) domain.LessonPack {
	ranked := rankChunks(unit, chunks)
	if len(ranked) == 0 {
		return emptyPack(unit)
	}

	texts := make([]string, 0, 3)
	for i := 0; i < len(ranked) && i < 3; i++ {
		texts = append(texts, strings.TrimSpace(ranked[i].Text))
	}
	summary := e.summarizer.Summarize(strings.Join(texts, " "), 2)
	if summary == "" {
		summary = firstSentence(ranked[0].Text, summaryChars)
	}

	ideas := make([]domain.LessonIdea, domain.KeyIdeaCount)
	for i := range ideas {
		src := ranked[i%len(ranked)]
		ideas[i] = domain.LessonIdea{Text: firstSentence(src.Text, ideaChars), Citation: chunkCitation(src, unit)}
	}

	pitfalls := make([]domain.LessonIdea, domain.PitfallCount)
	for i := range pitfalls {
		src := ranked[(i+1)%len(ranked)]
		objective := "the core technique"
		if n := len(unit.LearningObjectives); n > 0 {
			objective = unit.LearningObjectives[i%n]
		}
		pitfalls[i] = domain.LessonIdea{
			Text:     fmt.Sprintf("Do not replace %s with abstract summary; keep it visible in concrete scene action.", strings.ToLower(objective)),
			Citation: chunkCitation(src, unit),
		}
	}

	objectives := unit.LearningObjectives
	if len(objectives) == 0 {
		objectives = []string{fmt.Sprintf("Apply the key move in %s.", unit.Title)}
	}
	return domain.LessonPack{
		UnitID:   unit.ID,
		Summary:  summary,
		KeyIdeas: ideas,
		Pitfalls: pitfalls,
		ReflectionQuestions: []string{
			fmt.Sprintf("Where in your latest draft do you explicitly apply: %s?", objectives[0]),
			fmt.Sprintf("What sentence currently weakens this unit's goal: %s?", objectives[min(1, len(objectives)-1)]),
			fmt.Sprintf("What change would make your next revision align better with %s?", unit.Title),
		},
		MicroDrills: []string{
			"Draft 6 lines that introduce a conflict beat using only observable actions.",
			"Revise one paragraph by cutting abstraction and replacing it with sensory detail.",
		},
		SourceMode: domain.SourceModeFallback,
	}
}

// emptyPack is the pack for a unit with no chunks; it cites the unit's start page.
func emptyPack(unit domain.CourseUnit) domain.LessonPack {
	citation := domain.FormatCitation(max(1, unit.StartPage))
	ideas := make([]domain.LessonIdea, domain.KeyIdeaCount)
	for i := range ideas {
		ideas[i] = domain.LessonIdea{
			Text:     fmt.Sprintf("Apply this unit's central technique directly to scene-level choices (%d/%d).", i+1, domain.KeyIdeaCount),
			Citation: citation,
		}
	}
	pitfalls := make([]domain.LessonIdea, domain.PitfallCount)
	for i := range pitfalls {
		pitfalls[i] = domain.LessonIdea{
			Text:     fmt.Sprintf("Avoid drifting away from the unit objective before revision pass %d.", i+1),
			Citation: citation,
		}
	}
	return domain.LessonPack{
		UnitID:   unit.ID,
		Summary:  "This unit centers on one craft move at a time and asks for deliberate revision.",
		KeyIdeas: ideas,
		Pitfalls: pitfalls,
		ReflectionQuestions: []string{
			"Which craft move from this unit is currently strongest in your draft?",
			"Where does your draft lose control of point of view or scene pressure?",
			"What single change would improve clarity most in the next revision pass?",
		},
		MicroDrills: []string{
			"Write 5 lines that keep one perspective fixed while raising scene tension.",
			"Rewrite one paragraph using sharper sensory details tied to motive.",
		},
		SourceMode: domain.SourceModeFallback,
	}
}
