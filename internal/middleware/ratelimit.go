package middleware

import (
	"context"
	"errors"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/aizen-labs/premium-bot/internal/ratelimit"
)

// RateLimitMiddleware enforces per-user limits on incoming updates. It runs
// as a telebot middleware so throttled updates never reach the router.
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
	log     *slog.Logger
}

// NewRateLimitMiddleware constructs a rate-limit middleware component.
func NewRateLimitMiddleware(limiter ratelimit.Limiter, log *slog.Logger) *RateLimitMiddleware {
	if log == nil {
		log = slog.Default()
	}

	return &RateLimitMiddleware{limiter: limiter, log: log}
}

// Handle returns a telebot middleware that enforces the per-user limit.
// Limiter failures fail open; dropping updates over a Redis hiccup is worse
// than letting a burst through.
func (m *RateLimitMiddleware) Handle(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		if m.limiter == nil {
			return next(c)
		}

		sender := c.Sender()
		if sender == nil {
			return next(c)
		}

		result, err := m.limiter.Allow(context.Background(), sender.ID)
		if err != nil && !errors.Is(err, ratelimit.ErrLimitExceeded) {
			m.log.Warn("rate limiter error", slog.Int64("user_id", sender.ID), slog.Any("error", err))
			return next(c)
		}

		if result != nil && !result.Allowed {
			m.log.Warn("rate limit exceeded", slog.Int64("user_id", sender.ID))
			return c.Send("⏳ Slow down a little and try again.")
		}

		return next(c)
	}
}
