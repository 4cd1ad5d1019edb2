// Package coach answers learner questions strictly from a unit's chunks.
package coach

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coursecoach/internal/domain"
	"coursecoach/internal/generation"
	"coursecoach/internal/ranking"
)

// RefusalText is the canonical reply to questions the course does not cover.
const RefusalText = "That is not covered in this course material."

var coachOptions = domain.GenerateOptions{Temperature: domain.Temperature(0.15), MaxOutputTokens: 800}

// Engine answers questions with a ranker, scope gate and optional generator.
type Engine struct {
	ranker  *ranking.Ranker
	adapter *generation.Adapter
	log     *zap.Logger
}

// NewEngine builds a coach engine. A nil adapter answers from the fallback only.
func NewEngine(ranker *ranking.Ranker, adapter *generation.Adapter, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{ranker: ranker, adapter: adapter, log: log}
}

// Refusal returns the fixed refusal answer.
func Refusal() domain.CoachAnswer {
	return domain.CoachAnswer{
		Answer:     RefusalText,
		Citations:  []string{},
		Evidence:   []domain.Evidence{},
		Confidence: 1.0,
		IsRefusal:  true,
	}
}

// Ask answers question using only chunks. It always returns an answer; every
// non-refusal answer carries at least one citation and one evidence quote
// drawn from the ranked chunks.
func (e *Engine) Ask(ctx context.Context, unitID, question string, chunks []domain.Chunk) domain.CoachAnswer {
	if strings.TrimSpace(question) == "" {
		return Refusal()
	}
	relevant := e.ranker.Rank(question, chunks)
	if len(relevant) == 0 {
		return Refusal()
	}
	if e.ranker.OffScope(question, &relevant[0]) {
		return Refusal()
	}
	if !e.adapter.Available() {
		return fallbackAnswer(relevant)
	}

	reqID := uuid.NewString()
	payload, err := e.adapter.GenerateJSON(ctx, buildPrompt(question, relevant), coachOptions)
	if err != nil {
		e.log.Warn("coach generation failed; using fallback",
			zap.String("request_id", reqID),
			zap.String("unit_id", unitID),
			zap.Error(err))
		return fallbackAnswer(relevant)
	}
	if payload.String("answer") == RefusalText {
		return Refusal()
	}
	answer, ok := normalize(payload, relevant)
	if !ok {
		e.log.Debug("coach payload rejected; using fallback",
			zap.String("request_id", reqID),
			zap.String("unit_id", unitID))
		return fallbackAnswer(relevant)
	}
	return answer
}
