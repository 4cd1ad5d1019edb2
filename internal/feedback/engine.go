// Package feedback scores drafts against the four-dimension course rubric.
package feedback

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coursecoach/internal/domain"
	"coursecoach/internal/generation"
)

const contextChunks = 12

// Engine evaluates drafts with an optional generator and a local fallback.
type Engine struct {
	adapter    *generation.Adapter
	profiles   generation.Profiles
	thresholds domain.Thresholds
	log        *zap.Logger
}

// NewEngine builds a feedback engine. A nil adapter scores locally only.
func NewEngine(adapter *generation.Adapter, profiles generation.Profiles, thresholds domain.Thresholds, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{adapter: adapter, profiles: profiles, thresholds: thresholds, log: log}
}

// Evaluate scores draft for unit. It always returns a report whose scores lie
// in [0,100] and whose UnlockEligible matches the unlock threshold.
func (e *Engine) Evaluate(ctx context.Context, unit domain.CourseUnit, draft string, chunks []domain.Chunk) domain.FeedbackReport {
	if len(chunks) > contextChunks {
		chunks = chunks[:contextChunks]
	}
	fallback := fallbackReport(unit, draft, chunks, e.thresholds)
	if !e.adapter.Available() {
		return fallback
	}

	profile := e.profiles.ForLength(len(draft))
	reqID := uuid.NewString()
	payload, err := e.adapter.GenerateJSON(ctx, buildPrompt(unit, draft, chunks), profile.Options)
	if err != nil {
		e.log.Warn("feedback generation failed; using fallback",
			zap.String("request_id", reqID),
			zap.String("unit_id", unit.ID),
			zap.String("profile", profile.Name),
			zap.Error(err))
		return fallback
	}
	return normalize(payload, unit, chunks, fallback, e.thresholds)
}
