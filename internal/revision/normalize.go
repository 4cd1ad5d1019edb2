package revision

import (
	"strings"

	"coursecoach/internal/domain"
	"coursecoach/internal/generation"
)

const checklistLen = 3

// normalize repairs a generated mission from fallback: unknown focus, empty
// text, missing or badly cited checklist items and a final item that does
// not start with "Done when" all take the fallback value.
func normalize(p generation.Payload, chunks []domain.Chunk, unit domain.CourseUnit, fallback domain.RevisionMission) domain.RevisionMission {
	pages := domain.ValidPages(chunks)
	if len(pages) == 0 {
		pages = unit.Pages()
	}
	citation := domain.FirstCitation(chunks, unit.StartPage)

	m := fallback
	if focus := p.String("focus_dimension"); domain.IsRubricDimension(focus) {
		m.FocusDimension = focus
	}
	if title := p.String("title"); title != "" {
		m.Title = title
	}
	if instr, ok := cited(p.String("instructions"), pages, citation); ok {
		m.Instructions = instr
	}

	items := p.Strings("checklist")
	m.Checklist = make([]string, checklistLen)
	for i := range m.Checklist {
		m.Checklist[i] = fallback.Checklist[i]
		if i < len(items) {
			if item, ok := cited(items[i], pages, citation); ok {
				m.Checklist[i] = item
			}
		}
	}
	last := m.Checklist[checklistLen-1]
	if !strings.HasPrefix(strings.ToLower(last), strings.ToLower(domain.ChecklistDonePrefix)) {
		m.Checklist[checklistLen-1] = fallback.Checklist[checklistLen-1]
	}
	return m
}

// cited returns text with a visible citation. Text without one gets the
// fallback citation; text citing an unknown page is rejected.
func cited(text string, pages map[int]struct{}, citation string) (string, bool) {
	if text == "" {
		return "", false
	}
	refs := domain.InlineCitationRe.FindAllString(text, -1)
	if len(refs) == 0 {
		return text + " (" + citation + ")", true
	}
	for _, ref := range refs {
		if !domain.ValidCitation(ref[1:len(ref)-1], pages) {
			return "", false
		}
	}
	return text, true
}
