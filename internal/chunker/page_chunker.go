// Package chunker turns extracted page text into citation-bearing chunks and
// serves them back per unit.
package chunker

import (
	"regexp"
	"strings"

	"coursecoach/internal/domain"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// PageChunker splits each page into sentence-bounded chunks of at most
// maxChars characters. A single sentence longer than maxChars stays whole.
type PageChunker struct {
	maxChars int
	splitter *regexp.Regexp
}

// NewPageChunker creates a chunker; maxChars <= 0 selects 1200.
func NewPageChunker(maxChars int) *PageChunker {
	if maxChars <= 0 {
		maxChars = 1200
	}
	return &PageChunker{
		maxChars: maxChars,
		splitter: regexp.MustCompile(`[^.!?]+(?:[.!?]+|$)`),
	}
}

// MaxChars returns the configured chunk size.
func (c *PageChunker) MaxChars() int { return c.maxChars }

// Normalize collapses whitespace runs in extracted text.
func Normalize(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// Split breaks one page of text into chunk texts.
func (c *PageChunker) Split(text string) []string {
	text = Normalize(text)
	if text == "" {
		return nil
	}
	if len(text) <= c.maxChars {
		return []string{text}
	}
	sentences := c.splitter.FindAllString(text, -1)
	var chunks []string
	var current []string
	currentLen := 0
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if len(current) > 0 && currentLen+len(s)+1 > c.maxChars {
			chunks = append(chunks, strings.Join(current, " "))
			current = []string{s}
			currentLen = len(s)
			continue
		}
		current = append(current, s)
		currentLen += len(s) + 1
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	if len(chunks) == 0 {
		return []string{domain.Truncate(text, c.maxChars)}
	}
	return chunks
}

// ChunkUnit builds the chunks for unit from pages, where pages[i] is the
// text of page i+1. Pages outside the document are skipped.
func (c *PageChunker) ChunkUnit(unit domain.CourseUnit, pages []string) []domain.Chunk {
	start := unit.StartPage
	if start < 1 {
		start = 1
	}
	end := unit.EndPage
	if end > len(pages) {
		end = len(pages)
	}
	var out []domain.Chunk
	for page := start; page <= end; page++ {
		for idx, text := range c.Split(pages[page-1]) {
			out = append(out, domain.Chunk{
				UnitID:     unit.ID,
				Page:       page,
				Citation:   domain.FormatCitation(page),
				Text:       text,
				ChunkIndex: idx,
			})
		}
	}
	return out
}

// SplitPages splits a plain-text export on form feeds into page texts.
func SplitPages(document string) []string {
	return strings.Split(document, "\f")
}
