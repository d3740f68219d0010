package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/ticket-tracker/internal/analytics"
	"github.com/spec-kit/ticket-tracker/internal/codec"
)

// SnapshotCache stores dashboard snapshots in Redis as CBOR.
type SnapshotCache struct {
	client redis.Cmdable
	prefix string
}

// NewSnapshotCache returns a cache writing keys under prefix.
func NewSnapshotCache(client redis.Cmdable, prefix string) *SnapshotCache {
	return &SnapshotCache{client: client, prefix: prefix}
}

// Get returns the cached snapshot, or nil on a miss.
func (c *SnapshotCache) Get(ctx context.Context, key string) (*analytics.Snapshot, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	var snap analytics.Snapshot
	if err := codec.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// Set stores snap. A zero ttl keeps the entry until evicted.
func (c *SnapshotCache) Set(ctx context.Context, key string, snap analytics.Snapshot, ttl time.Duration) error {
	raw, err := codec.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("set snapshot: %w", err)
	}
	return nil
}
