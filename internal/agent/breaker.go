package agent

import (
	"fmt"
	"sync"
	"time"
)

// CircuitState represents the oracle circuit breaker state.
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // Normal: calls flow through
	CircuitOpen                         // Tripped: calls denied immediately
	CircuitHalfOpen                     // Probe: one call allowed to test recovery
)

// Breaker tracks transient oracle failures per task and opens the circuit
// when repeated failures exceed the threshold within a window. It is shared
// across concurrent ticket runs, so a flapping provider stops the whole
// fleet of runs quickly instead of each one timing out on its own.
type Breaker struct {
	mu        sync.Mutex
	tasks     map[string]*taskCircuit
	threshold int
	window    time.Duration
}

type taskCircuit struct {
	failures      []time.Time
	state         CircuitState
	openedAt      time.Time
	probeInFlight bool
}

// NewBreaker creates a breaker. threshold <= 0 defaults to 5; window <= 0
// defaults to 60 seconds.
func NewBreaker(threshold int, window time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if window <= 0 {
		window = 60 * time.Second
	}
	return &Breaker{
		tasks:     make(map[string]*taskCircuit),
		threshold: threshold,
		window:    window,
	}
}

// Check returns nil if a call for the task may proceed, or an error when the
// circuit is open. In half-open state one probe call is allowed.
func (b *Breaker) Check(task string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	tc, ok := b.tasks[task]
	if !ok {
		return nil
	}

	switch tc.state {
	case CircuitOpen:
		if time.Since(tc.openedAt) > b.window {
			tc.state = CircuitHalfOpen
			tc.probeInFlight = true
			return nil
		}
		return fmt.Errorf("circuit_open: oracle calls for %s suspended after repeated failures", task)
	case CircuitHalfOpen:
		if tc.probeInFlight {
			return fmt.Errorf("circuit_half_open: probe already in progress for %s", task)
		}
		tc.probeInFlight = true
		return nil
	}
	return nil
}

// RecordFailure records a transient oracle failure. Exceeding the threshold
// within the window opens the circuit; a failed half-open probe reopens it
// immediately.
func (b *Breaker) RecordFailure(task string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tc, ok := b.tasks[task]
	if !ok {
		tc = &taskCircuit{}
		b.tasks[task] = tc
	}

	now := time.Now()
	if tc.state == CircuitHalfOpen {
		tc.state = CircuitOpen
		tc.openedAt = now
		tc.probeInFlight = false
		return
	}

	cutoff := now.Add(-b.window)
	tc.failures = append(filterAfter(tc.failures, cutoff), now)
	if len(tc.failures) >= b.threshold {
		tc.state = CircuitOpen
		tc.openedAt = now
	}
}

// RecordSuccess closes a half-open circuit after a successful probe.
func (b *Breaker) RecordSuccess(task string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tc, ok := b.tasks[task]
	if !ok {
		return
	}
	if tc.state == CircuitHalfOpen {
		tc.state = CircuitClosed
		tc.failures = nil
		tc.probeInFlight = false
	}
}

// State returns the current circuit state for a task.
func (b *Breaker) State(task string) CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	tc, ok := b.tasks[task]
	if !ok {
		return CircuitClosed
	}
	return tc.state
}

// Reset clears the circuit for a task (operator override).
func (b *Breaker) Reset(task string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tasks, task)
}
