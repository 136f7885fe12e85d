package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := NewBreaker(3, time.Minute)

	require.NoError(t, b.Check("agent"))
	b.RecordFailure("agent")
	b.RecordFailure("agent")
	require.NoError(t, b.Check("agent"))

	b.RecordFailure("agent")
	assert.Equal(t, CircuitOpen, b.State("agent"))
	assert.Error(t, b.Check("agent"))
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	b := NewBreaker(1, 10*time.Millisecond)
	b.RecordFailure("agent")
	require.Error(t, b.Check("agent"))

	time.Sleep(20 * time.Millisecond)

	// First call after the window is the probe; a second concurrent call
	// is rejected until the probe resolves.
	require.NoError(t, b.Check("agent"))
	assert.Error(t, b.Check("agent"))

	b.RecordSuccess("agent")
	assert.Equal(t, CircuitClosed, b.State("agent"))
	assert.NoError(t, b.Check("agent"))
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	b := NewBreaker(1, 10*time.Millisecond)
	b.RecordFailure("agent")
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, b.Check("agent"))

	b.RecordFailure("agent")
	assert.Equal(t, CircuitOpen, b.State("agent"))
	assert.Error(t, b.Check("agent"))
}

func TestBreakerTasksAreIndependent(t *testing.T) {
	b := NewBreaker(1, time.Minute)
	b.RecordFailure("agent")
	assert.Error(t, b.Check("agent"))
	assert.NoError(t, b.Check("classify"))
}

func TestBreakerReset(t *testing.T) {
	b := NewBreaker(1, time.Minute)
	b.RecordFailure("agent")
	require.Error(t, b.Check("agent"))
	b.Reset("agent")
	assert.NoError(t, b.Check("agent"))
}
