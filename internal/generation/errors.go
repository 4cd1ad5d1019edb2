package generation

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrUnavailable is returned when no generation backend is configured.
var ErrUnavailable = errors.New("generation backend unavailable")

// Kind classifies a generation failure.
type Kind string

const (
	KindUnavailable Kind = "unavailable"
	KindTimeout     Kind = "timeout"
	KindNetwork     Kind = "network"
	KindBackend     Kind = "backend"
	KindMalformed   Kind = "malformed"
)

// Error is the failure returned by Adapter.GenerateJSON. Every kind routes
// the caller to its deterministic fallback.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("generation %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// StatusError reports a non-success HTTP response from the backend.
type StatusError struct {
	Status string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend returned %s", e.Status)
	}
	return fmt.Sprintf("backend returned %s: %s", e.Status, e.Body)
}

// classify maps a raw generator error onto a Kind.
func classify(err error) *Error {
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}
	if errors.Is(err, ErrUnavailable) {
		return &Error{Kind: KindUnavailable, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return &Error{Kind: KindTimeout, Err: err}
		}
		return &Error{Kind: KindNetwork, Err: err}
	}
	return &Error{Kind: KindBackend, Err: err}
}
