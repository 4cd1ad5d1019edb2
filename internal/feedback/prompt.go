package feedback

import (
	"fmt"
	"strings"

	"coursecoach/internal/domain"
)

const (
	promptChunks    = 8
	promptChunkSize = 700
)

const reportSchema = `{
  "overall_score": int,
  "rubric_scores": {
    "concept_application": int,
    "narrative_effectiveness": int,
    "language_precision": int,
    "revision_readiness": int
  },
  "strengths": [string list],
  "craft_risks": [string list],
  "line_notes": [
    {"line_number": int, "text_excerpt": string, "comment": string, "citation": string}
  ],
  "revision_plan": [string list],
  "unlock_eligible": bool
}`

func buildPrompt(unit domain.CourseUnit, draft string, chunks []domain.Chunk) string {
	if len(chunks) > promptChunks {
		chunks = chunks[:promptChunks]
	}
	snippets := make([]string, 0, len(chunks))
	for _, ch := range chunks {
		text := domain.Truncate(ch.Text, promptChunkSize)
		snippets = append(snippets, fmt.Sprintf("[p.%d] %s", ch.Page, text))
	}

	var b strings.Builder
	b.WriteString("You are a strict literary writing coach. Review only the provided course unit context.\n\n")
	fmt.Fprintf(&b, "Unit %s: %s\n", unit.ID, unit.Title)
	fmt.Fprintf(&b, "Learning objectives: %s\n\n", strings.Join(unit.LearningObjectives, "; "))
	fmt.Fprintf(&b, "Course context:\n%s\n\n", strings.Join(snippets, "\n\n"))
	fmt.Fprintf(&b, "Student draft:\n%s\n\n", draft)
	fmt.Fprintf(&b, "Return JSON with this exact schema:\n%s\n\n", reportSchema)
	b.WriteString("Rules:\n")
	b.WriteString("- Use only unit context and do not use external writing theory.\n")
	b.WriteString("- Every strength, risk, and note should include a citation in the form (p.NUM).\n")
	b.WriteString("- numeric scores must be 0-100.\n")
	b.WriteString("- overall_score is weighted concept_application 35, narrative 30, language 20, revision 15.\n")
	return b.String()
}
