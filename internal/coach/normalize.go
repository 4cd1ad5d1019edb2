package coach

import (
	"coursecoach/internal/domain"
	"coursecoach/internal/generation"
)

const maxQuoteChars = 320

// normalize repairs a generated payload against the ranked chunks. It rejects
// the payload when no valid citation or evidence survives.
func normalize(p generation.Payload, relevant []domain.Chunk) (domain.CoachAnswer, bool) {
	pages := domain.ValidPages(relevant)

	answer := p.String("answer")
	if answer == "" {
		return domain.CoachAnswer{}, false
	}

	var citations []string
	for _, c := range p.Strings("citations") {
		if domain.ValidCitation(c, pages) {
			citations = append(citations, c)
		}
	}

	var evidence []domain.Evidence
	for _, item := range p.List("evidence") {
		obj := generation.AsObject(item)
		if obj == nil {
			continue
		}
		quote := obj.String("quote")
		citation := obj.String("citation")
		if quote == "" || !domain.ValidCitation(citation, pages) {
			continue
		}
		evidence = append(evidence, domain.Evidence{Quote: truncate(quote, maxQuoteChars), Citation: citation})
	}

	if len(citations) == 0 || len(evidence) == 0 {
		return domain.CoachAnswer{}, false
	}

	confidence, _ := p.Float("confidence")
	confidence = min(1, max(0, confidence))

	if !domain.InlineCitationRe.MatchString(answer) {
		answer += " (" + citations[0] + ")"
	}
	return domain.CoachAnswer{
		Answer:     answer,
		Citations:  citations,
		Evidence:   evidence,
		Confidence: confidence,
	}, true
}
