package agent

import (
	"time"

	"github.com/rs/zerolog/log"
)

// failureTracker counts tool execution failures within one agent run. A tool
// that keeps erroring gets degraded for the rest of the run so the oracle
// stops burning iterations on it. A run is owned by one goroutine, so the
// tracker carries no locking.
type failureTracker struct {
	failures  map[string][]time.Time
	degraded  map[string]bool
	threshold int
	window    time.Duration
}

// newFailureTracker creates a tracker. threshold <= 0 defaults to 3; window
// <= 0 defaults to 2 minutes.
func newFailureTracker(threshold int, window time.Duration) *failureTracker {
	if threshold <= 0 {
		threshold = 3
	}
	if window <= 0 {
		window = 2 * time.Minute
	}
	return &failureTracker{
		failures:  make(map[string][]time.Time),
		degraded:  make(map[string]bool),
		threshold: threshold,
		window:    window,
	}
}

// record notes a failure for the tool and reports whether the tool just
// crossed the degradation threshold.
func (t *failureTracker) record(correlationID, tool string, err error) bool {
	now := time.Now()
	cutoff := now.Add(-t.window)
	t.failures[tool] = append(filterAfter(t.failures[tool], cutoff), now)

	if len(t.failures[tool]) >= t.threshold && !t.degraded[tool] {
		t.degraded[tool] = true
		log.Warn().
			Str("correlation_id", correlationID).
			Str("tool", tool).
			Err(err).
			Int("failure_count", len(t.failures[tool])).
			Msg("tool_degraded_for_run")
		return true
	}
	return false
}

// isDegraded reports whether the tool has been taken out of rotation.
func (t *failureTracker) isDegraded(tool string) bool {
	return t.degraded[tool]
}

func filterAfter(times []time.Time, cutoff time.Time) []time.Time {
	var result []time.Time
	for _, ts := range times {
		if ts.After(cutoff) {
			result = append(result, ts)
		}
	}
	return result
}
