package revision

import (
	"encoding/json"
	"fmt"
	"strings"

	"coursecoach/internal/domain"
)

const (
	promptChunks    = 8
	promptChunkSize = 450
	draftExcerpt    = 850
)

func clip(s string, n int) string {
	return domain.Truncate(s, n)
}

func buildPrompt(unit domain.CourseUnit, report domain.FeedbackReport, draft string, chunks []domain.Chunk) string {
	if len(chunks) > promptChunks {
		chunks = chunks[:promptChunks]
	}
	parts := make([]string, 0, len(chunks))
	for _, ch := range chunks {
		parts = append(parts, fmt.Sprintf("[p.%d] %s", ch.Page, clip(ch.Text, promptChunkSize)))
	}
	scores, _ := json.Marshal(report.RubricScores)
	risks, _ := json.Marshal(report.CraftRisks)

	return fmt.Sprintf(`You are building one revision mission for a writing student.

Unit: %s - %s
Rubric scores: %s
Craft risks: %s
Draft excerpt: %s

Course context (use only this):
%s

Return JSON only:
{
  "focus_dimension": "one of %s",
  "title": "short mission title",
  "instructions": "1-2 sentence mission description with citation (p.NUM)",
  "checklist": ["step 1", "step 2", "Done when ..."]
}

Rules:
- Return exactly 3 checklist items.
- Third checklist item must start with 'Done when'.
- Include at least one citation in instructions and each checklist item, formatted as (p.NUM).
- Use only provided context.
`, unit.ID, unit.Title, scores, risks, clip(draft, draftExcerpt), strings.Join(parts, "\n\n"),
		strings.Join(domain.RubricDimensions, "|"))
}
