// Package ratelimit throttles per-user update volume so a single chat
// cannot monopolize the bot.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrLimitExceeded indicates the user hit the per-window request ceiling.
var ErrLimitExceeded = errors.New("rate limit exceeded")

// Result captures the outcome of a rate-limit evaluation.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter decides whether a user's next update may proceed.
type Limiter interface {
	Allow(ctx context.Context, userID int64) (*Result, error)
}
