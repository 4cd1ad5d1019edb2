package coach

import (
	"fmt"
	"strings"

	"coursecoach/internal/domain"
)

const (
	contextChunks    = 6
	contextChunkSize = 900
)

func buildContext(chunks []domain.Chunk) string {
	if len(chunks) > contextChunks {
		chunks = chunks[:contextChunks]
	}
	snippets := make([]string, 0, len(chunks))
	for _, ch := range chunks {
		snippets = append(snippets, fmt.Sprintf("[p.%d] %s", ch.Page, truncate(strings.TrimSpace(ch.Text), contextChunkSize)))
	}
	return strings.Join(snippets, "\n\n")
}

func buildPrompt(question string, chunks []domain.Chunk) string {
	return fmt.Sprintf(`You are the course coach for one unit only.

Question: %s

Use only this context:
%s

Return JSON only:
{
  "answer": "...",
  "citations": ["p.NUM"],
  "evidence": [{"quote":"short quote from context", "citation":"p.NUM"}],
  "confidence": 0.0
}

Rules:
- If context is insufficient, return:
  {"answer":"%s","citations":[],"evidence":[],"confidence":1.0}
- Include at least one citation and one evidence quote for in-scope answers.
- Evidence citations must match the provided context pages.
`, question, buildContext(chunks), RefusalText)
}

func truncate(s string, n int) string {
	return domain.Truncate(s, n)
}
