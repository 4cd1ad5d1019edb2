// Package ranking scores course chunks against free-text questions and
// decides whether a question is answerable from the supplied pool.
package ranking

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[a-z]{2,}`)

var stopwords = toSet([]string{
	"a", "an", "and", "are", "as", "at", "be", "but", "by", "can", "did", "do", "for", "from",
	"has", "have", "had", "he", "her", "hers", "his", "i", "in", "is", "it", "its", "if", "me",
	"my", "no", "not", "of", "on", "or", "our", "she", "so", "the", "to", "that", "this", "was",
	"we", "with", "you", "your", "all", "any", "been", "does", "doing", "into", "just", "more",
	"only", "should", "very", "when", "what", "which", "while", "who", "will", "would",
	"yourself", "their",
})

var offTopicKeywords = toSet([]string{
	"programming", "recipe", "sports", "football", "basketball", "algorithm",
	"engineering", "cooking", "stock", "market", "tax", "politics",
})

// Tokenize lowercases text and returns alphabetic runs of length >= 2 with
// stop words removed, in order of appearance.
func Tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	if len(raw) == 0 {
		return nil
	}
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

// TokenSet returns the distinct tokens of text.
func TokenSet(text string) map[string]struct{} {
	return toSet(Tokenize(text))
}

// IsStopword reports whether w is in the fixed stop-word set.
func IsStopword(w string) bool {
	_, ok := stopwords[w]
	return ok
}

// Overlap returns the overlap ratio (against distinct query tokens) and the
// distinct overlap count between two token sequences.
func Overlap(queryTokens, chunkTokens []string) (float64, int) {
	if len(queryTokens) == 0 {
		return 0, 0
	}
	qset := toSet(queryTokens)
	cset := toSet(chunkTokens)
	inter := 0
	for t := range qset {
		if _, ok := cset[t]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(qset)), inter
}

func toSet(tokens []string) map[string]struct{} {
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}
