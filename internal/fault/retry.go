package fault

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// RetryPolicy controls the backoff schedule for retried reads.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy is tuned for upstream HTTP reads: 3 attempts,
// 250ms base, capped at 5s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 250 * time.Millisecond, MaxDelay: 5 * time.Second}
}

// Retry runs fn until it succeeds, returns a non-transient error, or the
// policy is exhausted. Intended for idempotent reads only; callers must not
// pass operations with side effects. A RateLimitError's Retry-After hint
// overrides the computed backoff for that attempt.
func Retry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	var err error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoff(policy, attempt)
			var rle *RateLimitError
			if errors.As(err, &rle) && rle.RetryAfter > 0 {
				delay = rle.RetryAfter
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
	}
	return err
}

// backoff computes exponential delay with full jitter, capped at MaxDelay.
func backoff(policy RetryPolicy, attempt int) time.Duration {
	d := policy.BaseDelay << (attempt - 1)
	if d > policy.MaxDelay || d <= 0 {
		d = policy.MaxDelay
	}
	return time.Duration(rand.Int63n(int64(d)) + 1)
}
