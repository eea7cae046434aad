package session

import (
	"context"
	"log/slog"
	"time"
)

// Cleaner clears sessions that have not been touched within the TTL, bounding
// the lifetime of the awaiting-details state.
type Cleaner struct {
	storage  Storage
	log      *slog.Logger
	ttl      time.Duration
	interval time.Duration
}

// NewCleaner constructs a Cleaner instance.
func NewCleaner(storage Storage, log *slog.Logger, ttl, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		storage:  storage,
		log:      log,
		ttl:      ttl,
		interval: interval,
	}
}

// Run starts the cleanup loop until the context is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if c == nil || c.storage == nil || c.interval <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("session cleaner stopped")
			return
		case <-ticker.C:
			if _, err := c.SweepOnce(ctx); err != nil {
				c.log.Error("session sweep failed", slog.Any("error", err))
			}
		}
	}
}

// SweepOnce clears every stale session and returns how many were removed.
// Also invoked by the background job queue when it is enabled.
func (c *Cleaner) SweepOnce(ctx context.Context) (int, error) {
	sessions, err := c.storage.GetAll(ctx)
	if err != nil {
		return 0, err
	}

	cleared := 0
	cutoff := time.Now().UTC().Add(-c.ttl)

	for _, sess := range sessions {
		if sess == nil || !sess.UpdatedAt.Before(cutoff) {
			continue
		}

		if err := c.storage.Clear(ctx, sess.UserID); err != nil {
			c.log.Error("failed to clear stale session", slog.Int64("user_id", sess.UserID), slog.Any("error", err))
			continue
		}

		cleared++
		c.log.Info("stale session cleared", slog.Int64("user_id", sess.UserID))
	}

	return cleared, nil
}
