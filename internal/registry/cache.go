package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/aizen-labs/premium-bot/internal/domain"
)

const defaultCacheTTL = 5 * time.Minute

// CachedRegistry is a read-through Redis cache in front of another registry,
// used with the postgres backend. Every mutation invalidates the cached record
// before delegating, so the ban and quota gates never act on stale data for
// longer than a single in-flight read.
type CachedRegistry struct {
	next   UserRegistry
	client *redis.Client
	log    *slog.Logger
	ttl    time.Duration
}

// NewCachedRegistry wraps next with a Redis read cache.
func NewCachedRegistry(next UserRegistry, client *redis.Client, log *slog.Logger) *CachedRegistry {
	if log == nil {
		log = slog.Default()
	}

	return &CachedRegistry{
		next:   next,
		client: client,
		log:    log,
		ttl:    defaultCacheTTL,
	}
}

func (c *CachedRegistry) GetOrCreate(ctx context.Context, userID int64, username string) (*domain.User, error) {
	user, err := c.next.GetOrCreate(ctx, userID, username)
	if err != nil {
		return nil, err
	}

	c.store(ctx, user)
	return user, nil
}

func (c *CachedRegistry) Get(ctx context.Context, userID int64) (*domain.User, error) {
	if cached := c.lookup(ctx, userID); cached != nil {
		return cached, nil
	}

	user, err := c.next.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.store(ctx, user)
	return user, nil
}

func (c *CachedRegistry) SetBanned(ctx context.Context, userID int64, banned bool) error {
	c.invalidate(ctx, userID)
	return c.next.SetBanned(ctx, userID, banned)
}

func (c *CachedRegistry) MarkRedeemUsed(ctx context.Context, userID int64) (bool, error) {
	c.invalidate(ctx, userID)
	return c.next.MarkRedeemUsed(ctx, userID)
}

func (c *CachedRegistry) GrantPremium(ctx context.Context, userID int64, until time.Time) error {
	c.invalidate(ctx, userID)
	return c.next.GrantPremium(ctx, userID, until)
}

func (c *CachedRegistry) RevokeExpired(ctx context.Context, now time.Time) (int64, error) {
	// Downgrades touch an unknown set of users; drop the whole cache namespace
	// lazily by keeping the TTL short instead of scanning.
	return c.next.RevokeExpired(ctx, now)
}

func (c *CachedRegistry) AllIDs(ctx context.Context) ([]int64, error) {
	return c.next.AllIDs(ctx)
}

func (c *CachedRegistry) lookup(ctx context.Context, userID int64) *domain.User {
	data, err := c.client.Get(ctx, userCacheKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("user cache read failed", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return nil
	}

	var user domain.User
	if err := json.Unmarshal(data, &user); err != nil {
		c.log.Warn("user cache decode failed", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil
	}

	return &user
}

func (c *CachedRegistry) store(ctx context.Context, user *domain.User) {
	if user == nil {
		return
	}

	payload, err := json.Marshal(user)
	if err != nil {
		return
	}

	if err := c.client.Set(ctx, userCacheKey(user.TelegramID), payload, c.ttl).Err(); err != nil {
		c.log.Warn("user cache write failed", slog.Int64("user_id", user.TelegramID), slog.Any("error", err))
	}
}

func (c *CachedRegistry) invalidate(ctx context.Context, userID int64) {
	if err := c.client.Del(ctx, userCacheKey(userID)).Err(); err != nil {
		c.log.Warn("user cache invalidation failed", slog.Int64("user_id", userID), slog.Any("error", err))
	}
}

func userCacheKey(userID int64) string {
	return fmt.Sprintf("user:entitlement:%d", userID)
}
