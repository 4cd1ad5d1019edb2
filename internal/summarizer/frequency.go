// Package summarizer condenses course passages into a short extractive summary.
package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"coursecoach/internal/domain"
	"coursecoach/internal/ranking"
)

var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]+`)

// FrequencySummarizer ranks sentences by normalized token frequency.
type FrequencySummarizer struct {
	maxChars int
}

// NewFrequencySummarizer creates a summarizer whose output never exceeds
// maxChars characters; maxChars <= 0 disables the cap.
func NewFrequencySummarizer(maxChars int) *FrequencySummarizer {
	return &FrequencySummarizer{maxChars: maxChars}
}

// Summarize returns up to maxSentences of the highest-scoring sentences of
// text, in their original order. Text without sentence punctuation is
// returned trimmed.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) string {
	if maxSentences <= 0 {
		maxSentences = 2
	}
	sentences := sentencePattern.FindAllString(text, -1)
	if len(sentences) == 0 {
		return s.cap(strings.TrimSpace(text))
	}

	tokens := make([][]string, len(sentences))
	freq := map[string]float64{}
	for i, sent := range sentences {
		tokens[i] = ranking.Tokenize(sent)
		for _, tok := range tokens[i] {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		if v > maxF {
			maxF = v
		}
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}

	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(sentences))
	for i := range sentences {
		sscore := 0.0
		for _, tok := range tokens[i] {
			sscore += freq[tok]
		}
		if l := float64(len(tokens[i])); l > 0 {
			sscore /= math.Sqrt(l)
		}
		scores[i] = pair{i, sscore}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if maxSentences > len(scores) {
		maxSentences = len(scores)
	}

	selected := make([]int, maxSentences)
	for i := 0; i < maxSentences; i++ {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, 0, len(selected))
	for _, idx := range selected {
		out = append(out, strings.TrimSpace(sentences[idx]))
	}
	return s.cap(strings.Join(out, " "))
}

func (s *FrequencySummarizer) cap(text string) string {
	if s.maxChars <= 0 || utf8.RuneCountInString(text) <= s.maxChars {
		return text
	}
	cut := domain.Truncate(text, s.maxChars)
	if i := strings.LastIndex(cut, " "); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:") + "..."
}
