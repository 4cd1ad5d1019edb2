// Package generation wraps an optional text-generation backend behind a
// single bounded call that yields a parsed JSON payload or a typed error.
package generation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"coursecoach/internal/domain"
)

// Adapter performs one bounded generation call per request.
type Adapter struct {
	gen     domain.Generator
	timeout time.Duration
	log     *zap.Logger
}

// NewAdapter wraps gen. A nil gen makes every call return ErrUnavailable.
func NewAdapter(gen domain.Generator, timeout time.Duration, log *zap.Logger) *Adapter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{gen: gen, timeout: timeout, log: log}
}

// Available reports whether a backend is configured.
func (a *Adapter) Available() bool {
	return a != nil && a.gen != nil
}

// GenerateJSON runs prompt through the backend and extracts a JSON object
// from the reply. It never retries.
func (a *Adapter) GenerateJSON(ctx context.Context, prompt string, opts domain.GenerateOptions) (Payload, error) {
	if !a.Available() {
		return nil, &Error{Kind: KindUnavailable, Err: ErrUnavailable}
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	raw, err := a.gen.Generate(ctx, prompt, opts)
	if err != nil {
		ge := classify(err)
		a.log.Debug("generation call failed",
			zap.String("backend", a.gen.Name()),
			zap.String("kind", string(ge.Kind)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, ge
	}
	payload, err := ExtractJSON(raw)
	if err != nil {
		a.log.Debug("generation reply not parseable", zap.String("backend", a.gen.Name()), zap.Error(err))
		return nil, &Error{Kind: KindMalformed, Err: err}
	}
	return payload, nil
}
