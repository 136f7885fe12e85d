// Package dedup guards against double processing of webhook deliveries. The
// cache holds one slot per ticket fingerprint with atomic check-and-set
// semantics: whoever wins the SetNX owns the ticket until the slot is
// released or expires. The slot doubles as the per-ticket write lock, so a
// ticket never has two concurrent processors.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/fault"
)

const (
	keyPrefix = "flusso:dedup:"

	markerProcessing = "processing"
	markerCompleted  = "completed"

	// DefaultTTL bounds how long a slot suppresses reprocessing.
	DefaultTTL = time.Hour
)

// Cache is the shared dedup slot store.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New creates a cache over an existing redis client. ttl <= 0 defaults to
// DefaultTTL.
func New(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

// Fingerprint derives the stable slot key for one ticket delivery. When the
// webhook carries no update timestamp, deliveries within the same hour
// collapse onto one slot.
func Fingerprint(ticketID int64, updatedAt string) string {
	if updatedAt == "" {
		updatedAt = "bucket:" + time.Now().UTC().Format("2006-01-02T15")
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%s", ticketID, updatedAt)))
	return hex.EncodeToString(sum[:])
}

// Acquire atomically claims the slot for fp. It returns false when another
// delivery already holds or completed it.
func (c *Cache) Acquire(ctx context.Context, fp string) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, keyPrefix+fp, markerProcessing, c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: acquiring dedup slot: %v", fault.ErrTransientIO, err)
	}
	return ok, nil
}

// Release frees the slot so a retry can reprocess the ticket. Called on any
// failure path.
func (c *Cache) Release(ctx context.Context, fp string) error {
	if err := c.rdb.Del(ctx, keyPrefix+fp).Err(); err != nil {
		return fmt.Errorf("%w: releasing dedup slot: %v", fault.ErrTransientIO, err)
	}
	return nil
}

// MarkCompleted converts the processing marker into a completed marker with
// a fresh TTL, so true duplicates stay suppressed until expiry.
func (c *Cache) MarkCompleted(ctx context.Context, fp string) error {
	if err := c.rdb.Set(ctx, keyPrefix+fp, markerCompleted, c.ttl).Err(); err != nil {
		return fmt.Errorf("%w: marking dedup slot completed: %v", fault.ErrTransientIO, err)
	}
	return nil
}

// Status returns the current marker for fp, or "" when the slot is free.
func (c *Cache) Status(ctx context.Context, fp string) (string, error) {
	v, err := c.rdb.Get(ctx, keyPrefix+fp).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: reading dedup slot: %v", fault.ErrTransientIO, err)
	}
	return v, nil
}

// Ping verifies the redis connection at startup.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		log.Error().Err(err).Msg("redis_ping_failed")
		return fmt.Errorf("%w: redis unreachable: %v", fault.ErrTransientIO, err)
	}
	return nil
}
