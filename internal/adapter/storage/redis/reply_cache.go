package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ReplyCache implements ports.ReplyCache using Redis.
type ReplyCache struct {
	client *goredis.Client
	prefix string
}

// NewReplyCache creates a new Redis-backed reply cache.
func NewReplyCache(client *goredis.Client) *ReplyCache {
	return &ReplyCache{
		client: client,
		prefix: keyPrefix + "reply:",
	}
}

// Get returns the cached reply for updateID.
func (c *ReplyCache) Get(ctx context.Context, updateID int64) (string, bool, error) {
	val, err := c.client.Get(ctx, c.key(updateID)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis reply get: %w", err)
	}
	return val, true, nil
}

// Set stores the reply for updateID with TTL.
func (c *ReplyCache) Set(ctx context.Context, updateID int64, reply string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(updateID), reply, ttl).Err(); err != nil {
		return fmt.Errorf("redis reply set: %w", err)
	}
	return nil
}

func (c *ReplyCache) key(updateID int64) string {
	return c.prefix + strconv.FormatInt(updateID, 10)
}
