package coach

import (
	"strings"

	"coursecoach/internal/domain"
)

const (
	fallbackSentenceChars = 250
	fallbackQuoteChars    = 220
	fallbackConfidence    = 0.74
)

// fallbackAnswer quotes the first sentence of the best-ranked chunk.
// relevant must be non-empty.
func fallbackAnswer(relevant []domain.Chunk) domain.CoachAnswer {
	chosen := relevant[0]
	snippet := strings.TrimSpace(chosen.Text)
	first, _, _ := strings.Cut(snippet, ".")
	citation := domain.FormatCitation(chosen.Page)

	quote := truncate(snippet, fallbackQuoteChars)
	if quote == "" {
		quote = "No direct quote available in this chunk."
	}
	return domain.CoachAnswer{
		Answer:     "From this unit: " + truncate(first, fallbackSentenceChars) + ". (" + citation + ")",
		Citations:  []string{citation},
		Evidence:   []domain.Evidence{{Quote: quote, Citation: citation}},
		Confidence: fallbackConfidence,
	}
}
