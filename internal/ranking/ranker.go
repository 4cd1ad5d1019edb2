package ranking

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"coursecoach/internal/domain"
)

// Ranker orders chunks by TF-IDF relevance to a query. It holds only
// configuration and is safe for concurrent use.
type Ranker struct {
	minOverlap int
	minRatio   float64
	log        *zap.Logger
	score      scoreFunc
}

type scoreFunc func(queryTokens []string, chunks []domain.Chunk, chunkTokens [][]string) ([]scored, error)

// NewRanker builds a ranker from the relevance thresholds.
func NewRanker(t domain.Thresholds, log *zap.Logger) *Ranker {
	if t.MinOverlap <= 0 {
		t.MinOverlap = 1
	}
	if t.MinRatio <= 0 {
		t.MinRatio = 0.15
	}
	if log == nil {
		log = zap.NewNop()
	}
	r := &Ranker{minOverlap: t.MinOverlap, minRatio: t.MinRatio, log: log}
	r.score = r.tfidf
	return r
}

type scored struct {
	chunk domain.Chunk
	score float64
}

// Rank returns the chunks clearing the overlap floor, most relevant first.
// It never fails: if TF-IDF scoring breaks on malformed data it falls back
// to overlap-ratio ordering over the same pool.
func (r *Ranker) Rank(query string, chunks []domain.Chunk) []domain.Chunk {
	if len(chunks) == 0 {
		return nil
	}
	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 {
		return nil
	}
	chunkTokens := make([][]string, len(chunks))
	for i, ch := range chunks {
		chunkTokens[i] = Tokenize(ch.Text)
	}

	ranked, err := r.score(queryTokens, chunks, chunkTokens)
	if err != nil {
		r.log.Warn("tf-idf ranking failed; using overlap ranking", zap.Error(err))
		ranked = r.overlapOnly(queryTokens, chunks, chunkTokens)
	}
	return unwrap(ranked)
}

func (r *Ranker) passes(queryTokens, tokens []string) (float64, bool) {
	ratio, count := Overlap(queryTokens, tokens)
	return ratio, count >= r.minOverlap && ratio >= r.minRatio
}

func (r *Ranker) tfidf(queryTokens []string, chunks []domain.Chunk, chunkTokens [][]string) (out []scored, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out, err = nil, fmt.Errorf("tf-idf scoring: %v", rec)
		}
	}()

	// Document frequencies
	df := make(map[string]int)
	for _, tokens := range chunkTokens {
		seen := make(map[string]struct{})
		for _, tok := range tokens {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	n := float64(len(chunks))
	querySet := toSet(queryTokens)

	for i, ch := range chunks {
		tokens := chunkTokens[i]
		if _, ok := r.passes(queryTokens, tokens); !ok {
			continue
		}
		counts := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			counts[tok]++
		}
		total := len(tokens)
		if total == 0 {
			total = 1
		}
		score := 0.0
		for term := range querySet {
			c, ok := counts[term]
			if !ok {
				continue
			}
			tf := float64(c) / float64(total)
			// Smoothed IDF
			idf := math.Log((1+n)/(1+float64(df[term]))) + 1.0
			score += tf * idf
		}
		if math.IsNaN(score) || math.IsInf(score, 0) {
			return nil, fmt.Errorf("non-finite score for chunk %s/%d", ch.UnitID, ch.ChunkIndex)
		}
		if score <= 0 {
			continue
		}
		out = append(out, scored{chunk: ch, score: score})
	}
	sortDesc(out)
	return out, nil
}

func (r *Ranker) overlapOnly(queryTokens []string, chunks []domain.Chunk, chunkTokens [][]string) []scored {
	var out []scored
	for i, ch := range chunks {
		ratio, ok := r.passes(queryTokens, chunkTokens[i])
		if !ok {
			continue
		}
		out = append(out, scored{chunk: ch, score: ratio})
	}
	sortDesc(out)
	return out
}

// OffScope reports whether the question should be refused given the best
// ranked chunk. A denylisted keyword refuses regardless of overlap.
func (r *Ranker) OffScope(question string, best *domain.Chunk) bool {
	tokens := Tokenize(question)
	if len(tokens) == 0 {
		return true
	}
	for _, t := range tokens {
		if _, ok := offTopicKeywords[t]; ok {
			return true
		}
	}
	if best == nil {
		return true
	}
	ratio, count := Overlap(tokens, Tokenize(best.Text))
	if count < r.minOverlap {
		return true
	}
	return ratio < r.minRatio
}

func sortDesc(items []scored) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].score > items[j].score })
}

func unwrap(items []scored) []domain.Chunk {
	if len(items) == 0 {
		return nil
	}
	out := make([]domain.Chunk, len(items))
	for i, it := range items {
		out[i] = it.chunk
	}
	return out
}
