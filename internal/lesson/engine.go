// Package lesson builds per-unit study packs and caches them on disk.
package lesson

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coursecoach/internal/domain"
	"coursecoach/internal/generation"
	"coursecoach/internal/summarizer"
)

const summaryChars = 320

var lessonOptions = domain.GenerateOptions{Temperature: domain.Temperature(0.1), MaxOutputTokens: 1200}

// Engine builds lesson packs with an optional generator and a local fallback.
type Engine struct {
	adapter    *generation.Adapter
	summarizer *summarizer.FrequencySummarizer
	log        *zap.Logger
}

// NewEngine builds a lesson engine. A nil adapter builds fallback packs only.
func NewEngine(adapter *generation.Adapter, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		adapter:    adapter,
		summarizer: summarizer.NewFrequencySummarizer(summaryChars),
		log:        log,
	}
}

// Build returns a lesson pack for unit with exactly 5 key ideas, 3 pitfalls,
// 3 reflection questions and 2 micro drills, every idea cited.
func (e *Engine) Build(ctx context.Context, unit domain.CourseUnit, chunks []domain.Chunk) domain.LessonPack {
	fallback := e.fallbackPack(unit, chunks)
	if !e.adapter.Available() || len(chunks) == 0 {
		return fallback
	}

	reqID := uuid.NewString()
	payload, err := e.adapter.GenerateJSON(ctx, buildPrompt(unit, chunks), lessonOptions)
	if err != nil {
		e.log.Warn("lesson generation failed; using fallback",
			zap.String("request_id", reqID),
			zap.String("unit_id", unit.ID),
			zap.Error(err))
		return fallback
	}
	return normalize(payload, unit, chunks, fallback)
}
