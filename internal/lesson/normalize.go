package lesson

import (
	"coursecoach/internal/domain"
	"coursecoach/internal/generation"
)

func normalize(p generation.Payload, unit domain.CourseUnit, chunks []domain.Chunk, fallback domain.LessonPack) domain.LessonPack {
	pages := domain.ValidPages(chunks)
	summary := p.String("summary")
	if summary == "" {
		summary = fallback.Summary
	}
	return domain.LessonPack{
		UnitID:              unit.ID,
		Summary:             summary,
		KeyIdeas:            ideaList(p.List("key_ideas"), pages, fallback.KeyIdeas, domain.KeyIdeaCount),
		Pitfalls:            ideaList(p.List("pitfalls"), pages, fallback.Pitfalls, domain.PitfallCount),
		ReflectionQuestions: textList(p.Strings("reflection_questions"), fallback.ReflectionQuestions, domain.ReflectionQuestionCount),
		MicroDrills:         textList(p.Strings("micro_drills"), fallback.MicroDrills, domain.MicroDrillCount),
		SourceMode:          domain.SourceModeStructured,
	}
}

// ideaList keeps cited ideas and pads with fallback items up to n.
func ideaList(raw []any, pages map[int]struct{}, fallback []domain.LessonIdea, n int) []domain.LessonIdea {
	out := make([]domain.LessonIdea, 0, n)
	for _, item := range raw {
		if len(out) == n {
			break
		}
		obj := generation.AsObject(item)
		if obj == nil {
			continue
		}
		idea := domain.LessonIdea{Text: obj.String("text"), Citation: obj.String("citation")}
		if idea.Text == "" || !domain.ValidCitation(idea.Citation, pages) {
			continue
		}
		out = append(out, idea)
	}
	for len(out) < n {
		out = append(out, fallback[len(out)%len(fallback)])
	}
	return out
}

func textList(items, fallback []string, n int) []string {
	out := make([]string, 0, n)
	for _, item := range items {
		if len(out) == n {
			break
		}
		out = append(out, item)
	}
	for len(out) < n {
		out = append(out, fallback[len(out)%len(fallback)])
	}
	return out
}

// ValidFor reports whether pack satisfies the lesson pack shape for unit and
// cites only pages inside the unit's range.
func ValidFor(pack domain.LessonPack, unit domain.CourseUnit) bool {
	if pack.UnitID != unit.ID || pack.Summary == "" {
		return false
	}
	if len(pack.KeyIdeas) != domain.KeyIdeaCount || len(pack.Pitfalls) != domain.PitfallCount {
		return false
	}
	if len(pack.ReflectionQuestions) != domain.ReflectionQuestionCount || len(pack.MicroDrills) != domain.MicroDrillCount {
		return false
	}
	pages := unit.Pages()
	for _, idea := range append(append([]domain.LessonIdea(nil), pack.KeyIdeas...), pack.Pitfalls...) {
		if idea.Text == "" || !domain.ValidCitation(idea.Citation, pages) {
			return false
		}
	}
	return true
}
