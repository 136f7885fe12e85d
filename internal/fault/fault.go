// Package fault defines the error taxonomy shared by the pipeline stages.
//
// Errors are classified so callers can decide between retrying, degrading
// gracefully, and surfacing a system error on the ticket. Only idempotent
// reads are ever retried; writes fail fast.
package fault

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the taxonomy. Wrap with fmt.Errorf("...: %w", err)
// so errors.Is works across package boundaries.
var (
	// ErrTransientIO covers network timeouts, connection resets and 5xx
	// responses from upstream services. Safe to retry for idempotent reads.
	ErrTransientIO = errors.New("transient I/O failure")

	// ErrRateLimited is returned when an upstream rejects with 429.
	ErrRateLimited = errors.New("rate limited by upstream")

	// ErrMalformedOracleOutput means the model returned output that does
	// not parse into the expected JSON shape.
	ErrMalformedOracleOutput = errors.New("malformed oracle output")

	// ErrConfiguration covers missing or invalid configuration detected at
	// call time (absent API key, bad endpoint).
	ErrConfiguration = errors.New("configuration error")

	// ErrSystem is the terminal classification: the pipeline could not
	// complete for reasons unrelated to ticket content.
	ErrSystem = errors.New("system error")
)

// RateLimitError carries the upstream Retry-After hint alongside the
// ErrRateLimited sentinel.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by upstream (retry after %s)", e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// System wraps err as a terminal system error, preserving the cause chain.
func System(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrSystem, err)
}

// IsTransient reports whether err may succeed on retry.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientIO) || errors.Is(err, ErrRateLimited)
}

// IsSystem reports whether err is terminal for the current ticket.
func IsSystem(err error) bool {
	return errors.Is(err, ErrSystem) ||
		errors.Is(err, ErrConfiguration) ||
		errors.Is(err, context.DeadlineExceeded)
}
