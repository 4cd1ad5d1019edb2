package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursecoach/internal/domain"
)

func chunk(page int, text string) domain.Chunk {
	return domain.Chunk{UnitID: "1", Page: page, Citation: domain.FormatCitation(page), Text: text}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("What does Focalization mean in THIS unit? A x-ray, 42 times.")
	assert.Equal(t, []string{"focalization", "mean", "unit", "ray", "times"}, got)
	assert.Empty(t, Tokenize("   "))
	assert.Empty(t, Tokenize("the a an of"))
}

func TestOverlap(t *testing.T) {
	ratio, count := Overlap([]string{"scene", "voice", "scene"}, []string{"voice", "tone"})
	assert.Equal(t, 1, count)
	assert.InDelta(t, 0.5, ratio, 1e-9)

	ratio, count = Overlap(nil, []string{"voice"})
	assert.Zero(t, count)
	assert.Zero(t, ratio)
}

func TestRankOrdersByTFIDF(t *testing.T) {
	r := NewRanker(domain.DefaultThresholds(), nil)
	chunks := []domain.Chunk{
		chunk(10, "Dialogue carries motive and pressure between speakers."),
		chunk(11, "Focalization decides whose perception frames the scene. Focalization shifts distance."),
		chunk(12, "Scene distance and focalization shape the reader's sense of perspective in prose."),
	}

	ranked := r.Rank("How does focalization shape scene distance?", chunks)
	require.Len(t, ranked, 2)
	// the shorter chunk matching four query terms outranks repeated hits on three
	assert.Equal(t, 12, ranked[0].Page)
	assert.Equal(t, 11, ranked[1].Page)
}

func TestRankEmptyInputs(t *testing.T) {
	r := NewRanker(domain.DefaultThresholds(), nil)
	assert.Empty(t, r.Rank("focalization", nil))
	assert.Empty(t, r.Rank("   ", []domain.Chunk{chunk(1, "focalization")}))
	assert.Empty(t, r.Rank("the and of", []domain.Chunk{chunk(1, "focalization")}))
}

func TestRankDropsWeakOverlap(t *testing.T) {
	r := NewRanker(domain.DefaultThresholds(), nil)
	chunks := []domain.Chunk{chunk(3, "Scene pressure builds through concrete action.")}
	// one shared token out of eight distinct query tokens is below the 0.15 ratio
	q := "scene lighting camera lens budget crew schedule permits"
	assert.Empty(t, r.Rank(q, chunks))
}

func TestRankIsStableForTies(t *testing.T) {
	r := NewRanker(domain.DefaultThresholds(), nil)
	chunks := []domain.Chunk{
		chunk(1, "voice matters"),
		chunk(2, "voice matters"),
		chunk(3, "voice matters"),
	}
	ranked := r.Rank("voice", chunks)
	require.Len(t, ranked, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{ranked[0].Page, ranked[1].Page, ranked[2].Page})
}

func TestOffScope(t *testing.T) {
	r := NewRanker(domain.DefaultThresholds(), nil)
	best := chunk(16, "Narrating is about focalization, scene distance, and perspective.")

	tests := []struct {
		name     string
		question string
		best     *domain.Chunk
		want     bool
	}{
		{"empty", "   ", &best, true},
		{"stopwords only", "what is this", &best, true},
		{"denylist overrides overlap", "What is a sports strategy for focalization?", &best, true},
		{"no overlap", "What is quantum mechanics?", &best, true},
		{"no best chunk", "focalization", nil, true},
		{"on topic", "What is focalization and perspective in this unit?", &best, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.OffScope(tt.question, tt.best))
		})
	}
}

var degradePool = []domain.Chunk{
	chunk(1, "Focalization alone here."),
	chunk(2, "Cooking recipes for a crowd."),
	chunk(3, "Focalization and perspective."),
	chunk(4, "Focalization, perspective and distance notes."),
}

func TestTFIDFRecoversFromPanic(t *testing.T) {
	r := NewRanker(domain.DefaultThresholds(), nil)
	q := Tokenize("focalization perspective distance")
	_, err := r.tfidf(q, degradePool, [][]string{Tokenize(degradePool[0].Text)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tf-idf scoring")
}

func TestOverlapOnlyOrdersByRatio(t *testing.T) {
	r := NewRanker(domain.DefaultThresholds(), nil)
	q := Tokenize("focalization perspective distance")
	tokens := make([][]string, len(degradePool))
	for i, ch := range degradePool {
		tokens[i] = Tokenize(ch.Text)
	}

	got := r.overlapOnly(q, degradePool, tokens)
	require.Len(t, got, 3)
	assert.Equal(t, []int{4, 3, 1}, pages(unwrap(got)))
	assert.InDelta(t, 1.0, got[0].score, 1e-9)
	assert.InDelta(t, 2.0/3.0, got[1].score, 1e-9)
	assert.InDelta(t, 1.0/3.0, got[2].score, 1e-9)
}

func TestRankFallsBackToOverlapWhenScoringFails(t *testing.T) {
	r := NewRanker(domain.DefaultThresholds(), nil)
	r.score = func(q []string, chunks []domain.Chunk, tokens [][]string) ([]scored, error) {
		return r.tfidf(q, chunks, tokens[:1])
	}

	got := r.Rank("focalization perspective distance", degradePool)
	assert.Equal(t, []int{4, 3, 1}, pages(got))
}

func pages(chunks []domain.Chunk) []int {
	out := make([]int, len(chunks))
	for i, ch := range chunks {
		out[i] = ch.Page
	}
	return out
}
