package dedup

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, time.Hour), mr
}

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint(42, "2026-08-30T10:00:00Z")
	b := Fingerprint(42, "2026-08-30T10:00:00Z")
	c := Fingerprint(42, "2026-08-30T11:00:00Z")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, Fingerprint(43, "2026-08-30T10:00:00Z"))
	assert.Len(t, a, 64)
}

func TestAcquireReleaseCycle(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	fp := Fingerprint(1, "ts")

	ok, err := c.Acquire(ctx, fp)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Acquire(ctx, fp)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Release(ctx, fp))

	ok, err = c.Acquire(ctx, fp)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMarkCompletedKeepsSuppressing(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	fp := Fingerprint(2, "ts")

	ok, err := c.Acquire(ctx, fp)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, c.MarkCompleted(ctx, fp))

	status, err := c.Status(ctx, fp)
	require.NoError(t, err)
	assert.Equal(t, "completed", status)

	ok, err = c.Acquire(ctx, fp)
	require.NoError(t, err)
	assert.False(t, ok)

	// The completed marker expires; then reprocessing is allowed.
	mr.FastForward(2 * time.Hour)
	ok, err = c.Acquire(ctx, fp)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSlotExpires(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	fp := Fingerprint(3, "ts")

	ok, err := c.Acquire(ctx, fp)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Hour)

	ok, err = c.Acquire(ctx, fp)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConcurrentAcquireSingleWinner(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	fp := Fingerprint(4, "ts")

	const workers = 16
	var wg sync.WaitGroup
	wins := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := c.Acquire(ctx, fp)
			require.NoError(t, err)
			wins <- ok
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for ok := range wins {
		if ok {
			won++
		}
	}
	assert.Equal(t, 1, won)
}

func TestStatusFreeSlot(t *testing.T) {
	c, _ := newTestCache(t)
	status, err := c.Status(context.Background(), Fingerprint(5, "ts"))
	require.NoError(t, err)
	assert.Empty(t, status)
}
