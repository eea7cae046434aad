package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisLimiter enforces a sliding-window limit with a Redis sorted set per
// user, shared across bot instances.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	log    *slog.Logger
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter returns a Redis-backed sliding-window limiter.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration, log *slog.Logger) *RedisLimiter {
	if log == nil {
		log = slog.Default()
	}

	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
		log:    log,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, userID int64) (*Result, error) {
	now := time.Now()
	windowStart := now.Add(-l.window)
	key := fmt.Sprintf("ratelimit:user:%d", userID)

	cutoff := float64(windowStart.UnixNano()) / float64(time.Millisecond)
	score := float64(now.UnixNano()) / float64(time.Millisecond)

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("(%f", cutoff))
	pipe.ZAdd(ctx, key, redis.Z{Score: score, Member: uuid.NewString()})
	countCmd := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, l.window*2)

	if _, err := pipe.Exec(ctx); err != nil {
		l.log.Error("rate limiter pipeline failed", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, err
	}

	count, err := countCmd.Result()
	if err != nil {
		return nil, err
	}

	allowed := count <= int64(l.limit)
	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	result := &Result{
		Allowed:   allowed,
		Remaining: remaining,
		ResetAt:   now.Add(l.window),
	}
	if !allowed {
		return result, ErrLimitExceeded
	}

	return result, nil
}
