package idempotency

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDeduper remembers processed updates in Redis, shared across
// instances. SetNX makes the first-writer-wins decision atomic.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

var _ Deduper = (*RedisDeduper)(nil)

// NewRedisDeduper returns a Redis-backed deduper.
func NewRedisDeduper(client *redis.Client, ttl time.Duration, log *slog.Logger) *RedisDeduper {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = slog.Default()
	}

	return &RedisDeduper{client: client, ttl: ttl, log: log}
}

func (d *RedisDeduper) MarkSeen(ctx context.Context, key string) (bool, error) {
	stored, err := d.client.SetNX(ctx, redisKey(key), 1, d.ttl).Result()
	if err != nil {
		d.log.Error("dedupe check failed", slog.String("key", key), slog.Any("error", err))
		return false, err
	}

	return !stored, nil
}

func redisKey(key string) string {
	return fmt.Sprintf("dedupe:%s", key)
}
