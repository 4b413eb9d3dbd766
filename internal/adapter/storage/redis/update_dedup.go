package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// UpdateDeduper implements ports.UpdateDeduper using Redis SET NX.
type UpdateDeduper struct {
	client *goredis.Client
	prefix string
}

// NewUpdateDeduper creates a new Redis-backed update deduplicator.
func NewUpdateDeduper(client *goredis.Client) *UpdateDeduper {
	return &UpdateDeduper{
		client: client,
		prefix: keyPrefix + "update:",
	}
}

// FirstSeen atomically marks updateID as seen.
// Returns true if the update is new, false if it was already processed.
func (d *UpdateDeduper) FirstSeen(ctx context.Context, updateID int64, ttl time.Duration) (bool, error) {
	key := d.prefix + strconv.FormatInt(updateID, 10)
	result, err := d.client.SetArgs(ctx, key, 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis update dedup: %w", err)
	}
	return result == "OK", nil
}
