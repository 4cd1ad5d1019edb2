package revision

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"coursecoach/internal/domain"
)

// weakestDimension returns the lowest-scored rubric key. Ties go to the
// earliest dimension in canonical order, then to the alphabetically first
// unknown key.
func weakestDimension(rubric map[string]int) string {
	if len(rubric) == 0 {
		return domain.DimConceptApplication
	}
	keys := make([]string, 0, len(rubric))
	for _, dim := range domain.RubricDimensions {
		if _, ok := rubric[dim]; ok {
			keys = append(keys, dim)
		}
	}
	var extra []string
	for k := range rubric {
		if !domain.IsRubricDimension(k) {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	keys = append(keys, extra...)

	best := keys[0]
	for _, k := range keys[1:] {
		if rubric[k] < rubric[best] {
			best = k
		}
	}
	return best
}

func fallbackMission(unit domain.CourseUnit, report domain.FeedbackReport, chunks []domain.Chunk, now time.Time) domain.RevisionMission {
	focus := weakestDimension(report.RubricScores)
	label := domain.DimensionLabel(focus)
	lower := strings.ToLower(label)
	citation := domain.FirstCitation(chunks, unit.StartPage)

	return domain.RevisionMission{
		UnitID:         unit.ID,
		FocusDimension: focus,
		Title:          "Mission: Strengthen " + label,
		Instructions: fmt.Sprintf("Focus this revision pass on %s. Keep scope tight: one focused rewrite with direct alignment to unit %s (%s). Use cited unit material for guidance. (%s)",
			lower, unit.ID, unit.Title, citation),
		Checklist: []string{
			fmt.Sprintf("Rewrite the opening so %s is explicit in the first 3-5 lines. (%s)", lower, citation),
			fmt.Sprintf("Replace one abstract sentence with concrete action or sensory detail tied to unit goals. (%s)", citation),
			fmt.Sprintf("%s the new draft keeps one clear perspective and addresses one item from craft risks. (%s)", domain.ChecklistDonePrefix, citation),
		},
		Status:    domain.MissionActive,
		CreatedAt: now,
	}
}
