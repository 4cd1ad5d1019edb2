// Package revision turns a feedback report into one focused revision mission.
package revision

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coursecoach/internal/domain"
	"coursecoach/internal/generation"
)

var missionOptions = domain.GenerateOptions{Temperature: domain.Temperature(0.2), MaxOutputTokens: 700}

// Engine builds revision missions with an optional generator and a local fallback.
type Engine struct {
	adapter *generation.Adapter
	log     *zap.Logger
	now     func() time.Time
}

// NewEngine builds a revision engine. A nil adapter builds fallback missions only.
func NewEngine(adapter *generation.Adapter, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{adapter: adapter, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Build returns an active mission targeting the weakest rubric dimension of
// report. The mission has no ID and AttemptID 0 until it is persisted.
func (e *Engine) Build(ctx context.Context, unit domain.CourseUnit, report domain.FeedbackReport, draft string, chunks []domain.Chunk) domain.RevisionMission {
	fallback := fallbackMission(unit, report, chunks, e.now())
	if !e.adapter.Available() {
		return fallback
	}

	reqID := uuid.NewString()
	payload, err := e.adapter.GenerateJSON(ctx, buildPrompt(unit, report, draft, chunks), missionOptions)
	if err != nil {
		e.log.Warn("mission generation failed; using fallback",
			zap.String("request_id", reqID),
			zap.String("unit_id", unit.ID),
			zap.Error(err))
		return fallback
	}
	return normalize(payload, chunks, unit, fallback)
}
