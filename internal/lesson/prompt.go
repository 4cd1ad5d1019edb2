package lesson

import (
	"fmt"
	"strings"

	"coursecoach/internal/domain"
)

const (
	promptChunks    = 10
	promptChunkSize = 650
)

func buildPrompt(unit domain.CourseUnit, chunks []domain.Chunk) string {
	if len(chunks) > promptChunks {
		chunks = chunks[:promptChunks]
	}
	parts := make([]string, 0, len(chunks))
	for _, ch := range chunks {
		text := domain.Truncate(ch.Text, promptChunkSize)
		parts = append(parts, fmt.Sprintf("[p.%d] %s", ch.Page, text))
	}

	return fmt.Sprintf(`You are building a study pack for one writing-course unit.

Unit: %s - %s
Learning objectives: %s

Course context (PDF only):
%s

Return JSON only with this exact shape:
{
  "summary": "short paragraph",
  "key_ideas": [{"text":"...","citation":"p.NUM"}],
  "pitfalls": [{"text":"...","citation":"p.NUM"}],
  "reflection_questions": ["..."],
  "micro_drills": ["..."]
}

Rules:
- Use only the provided context.
- key_ideas must be exactly %d items.
- pitfalls must be exactly %d items.
- reflection_questions must be exactly %d items.
- micro_drills must be exactly %d items.
- Every key idea and pitfall must include citation in citation field exactly as p.NUM.
`, unit.ID, unit.Title, strings.Join(unit.LearningObjectives, "; "), strings.Join(parts, "\n\n"),
		domain.KeyIdeaCount, domain.PitfallCount, domain.ReflectionQuestionCount, domain.MicroDrillCount)
}
