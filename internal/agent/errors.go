package agent

import (
	"context"
	"errors"
	"fmt"
)

// Failure kinds produced by the loop itself. Tool failures use the kinds
// defined in package tools.
const (
	KindRoundLimitExceeded = "round_limit_exceeded"
	KindModelUnavailable   = "model_unavailable"
	KindTimeout            = "timeout"
	KindCancelled          = "cancelled"
)

// ErrRoundLimitExceeded is reported when a run needs more model rounds than
// its configured maximum.
var ErrRoundLimitExceeded = errors.New("agent: round limit exceeded")

// ModelUnavailableError wraps an error from the model provider.
type ModelUnavailableError struct {
	Provider string
	Err      error
}

func (e *ModelUnavailableError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("agent: model %q unavailable: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("agent: model unavailable: %v", e.Err)
}

func (e *ModelUnavailableError) Unwrap() error { return e.Err }

// Failure describes why a run ended in [StateFailed].
type Failure struct {
	// Kind is a stable machine-readable category such as "unknown_tool".
	Kind string `json:"kind"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Err is the underlying error, available to errors.Is / errors.As.
	Err error `json:"-"`
}

// Error implements error.
func (f *Failure) Error() string {
	return f.Kind + ": " + f.Message
}

// Unwrap returns the underlying error.
func (f *Failure) Unwrap() error { return f.Err }

// Retryable reports whether the same request may succeed if sent again.
// Model outages and timeouts are transient; tool and round-limit failures
// are properties of the request.
func (f *Failure) Retryable() bool {
	switch f.Kind {
	case KindModelUnavailable, KindTimeout:
		return true
	}
	return false
}

// newFailure builds a Failure from err with the given kind.
func newFailure(kind string, err error) *Failure {
	return &Failure{Kind: kind, Message: err.Error(), Err: err}
}

// contextFailure maps a context error onto the timeout / cancelled kinds.
func contextFailure(err error) *Failure {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Failure{Kind: KindTimeout, Message: "request timed out", Err: err}
	}
	return &Failure{Kind: KindCancelled, Message: "request cancelled", Err: err}
}
