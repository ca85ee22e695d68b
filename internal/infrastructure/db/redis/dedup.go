package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sirpyerre/timesheet-ledger/internal/core/ports"
)

const dedupTTL = 24 * time.Hour

// SubmissionDedup remembers which entry an idempotency key produced.
// Key format: submit:<actor_id>:<idempotency_key>
type SubmissionDedup struct {
	client redis.Cmdable
	ttl    time.Duration
}

var _ ports.SubmissionDedup = (*SubmissionDedup)(nil)

// NewSubmissionDedup wraps the given Redis client.
func NewSubmissionDedup(client redis.Cmdable) *SubmissionDedup {
	return &SubmissionDedup{client: client, ttl: dedupTTL}
}

// Lookup returns the entry id previously stored for key, if any.
func (d *SubmissionDedup) Lookup(ctx context.Context, actorID int64, key string) (int64, bool, error) {
	raw, err := d.client.Get(ctx, d.key(actorID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("dedup lookup: %w", err)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("dedup lookup: corrupt value %q: %w", raw, err)
	}
	return id, true, nil
}

// Remember stores the entry id for key. An existing mapping is kept.
func (d *SubmissionDedup) Remember(ctx context.Context, actorID int64, key string, entryID int64) error {
	if err := d.client.SetNX(ctx, d.key(actorID, key), strconv.FormatInt(entryID, 10), d.ttl).Err(); err != nil {
		return fmt.Errorf("dedup remember: %w", err)
	}
	return nil
}

func (d *SubmissionDedup) key(actorID int64, key string) string {
	return fmt.Sprintf("submit:%d:%s", actorID, key)
}
