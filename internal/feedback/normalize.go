package feedback

import (
	"coursecoach/internal/domain"
	"coursecoach/internal/generation"
)

const (
	maxListItems = 4
	maxLineNotes = 6
	maxPlanItems = 6
)

// validPages is the citation whitelist for a report: the supplied chunk pages,
// or the unit's page range when no chunks were supplied.
func validPages(unit domain.CourseUnit, chunks []domain.Chunk) map[int]struct{} {
	if pages := domain.ValidPages(chunks); len(pages) > 0 {
		return pages
	}
	return unit.Pages()
}

// normalize coerces a generated payload into a report, repairing fields from
// fallback where the payload is missing, out of range or badly cited.
func normalize(p generation.Payload, unit domain.CourseUnit, chunks []domain.Chunk, fallback domain.FeedbackReport, t domain.Thresholds) domain.FeedbackReport {
	pages := validPages(unit, chunks)
	citation := domain.FirstCitation(chunks, unit.StartPage)

	scores := p.Object("rubric_scores")
	rubric := make(map[string]int, len(domain.RubricDimensions))
	for _, dim := range domain.RubricDimensions {
		v, _ := scores.Int(dim)
		rubric[dim] = domain.ClampScore(v)
	}

	overall := domain.WeightedScore(rubric)
	if v, ok := p.Int("overall_score"); ok {
		overall = v
	}
	overall = domain.ClampScore(overall)

	report := domain.FeedbackReport{
		OverallScore:   overall,
		RubricScores:   rubric,
		Strengths:      citedList(p.Strings("strengths"), maxListItems, pages, citation),
		CraftRisks:     citedList(p.Strings("craft_risks"), maxListItems, pages, citation),
		LineNotes:      lineNotes(p.List("line_notes"), unit, pages, citation),
		RevisionPlan:   citedList(p.Strings("revision_plan"), maxPlanItems, pages, citation),
		UnlockEligible: t.Unlocks(overall),
	}
	if len(report.Strengths) == 0 {
		report.Strengths = []string{cite("Clear draft direction is visible.", citation)}
	}
	if len(report.CraftRisks) == 0 {
		report.CraftRisks = []string{cite("Tighten concrete detail and perspective alignment.", citation)}
	}
	if len(report.RevisionPlan) == 0 {
		report.RevisionPlan = append([]string(nil), fallback.RevisionPlan...)
	}
	return report
}

func capList(items []string, n int) []string {
	if len(items) > n {
		items = items[:n]
	}
	return items
}

// citedList keeps items whose inline citations are valid and suffixes the
// fallback citation to items that carry none.
func citedList(items []string, n int, pages map[int]struct{}, citation string) []string {
	var out []string
	for _, item := range capList(items, n) {
		if !domain.InlineCitationRe.MatchString(item) {
			out = append(out, cite(item, citation))
			continue
		}
		if inlineCitationsValid(item, pages) {
			out = append(out, item)
		}
	}
	return out
}

// inlineCitationsValid reports whether every "(p.N)" marker in text names a
// page in pages. Text without markers is valid.
func inlineCitationsValid(text string, pages map[int]struct{}) bool {
	for _, ref := range domain.InlineCitationRe.FindAllString(text, -1) {
		if !domain.ValidCitation(ref[1:len(ref)-1], pages) {
			return false
		}
	}
	return true
}

func lineNotes(raw []any, unit domain.CourseUnit, pages map[int]struct{}, citation string) []domain.LineNote {
	var notes []domain.LineNote
	for _, item := range raw {
		if len(notes) == maxLineNotes {
			break
		}
		obj := generation.AsObject(item)
		if obj == nil {
			continue
		}
		line, _ := obj.Int("line_number")
		note := domain.LineNote{
			LineNumber:  max(0, line),
			TextExcerpt: obj.String("text_excerpt"),
			Comment:     obj.String("comment"),
			Citation:    obj.String("citation"),
		}
		if !domain.ValidCitation(note.Citation, pages) || !inlineCitationsValid(note.Comment, pages) {
			note = noteFor(note.LineNumber, note.TextExcerpt, citation)
		}
		notes = append(notes, note)
	}
	if len(notes) == 0 {
		notes = []domain.LineNote{placeholderNote(unit, citation)}
	}
	return notes
}
