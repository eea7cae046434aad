// Package notify delivers engine-originated messages over Telegram with
// bounded retries and a circuit breaker around the Bot API.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/aizen-labs/premium-bot/pkg/metrics"
)

const (
	maxAttempts    = 3
	retryBackoff   = 500 * time.Millisecond
	broadcastPause = 50 * time.Millisecond
)

// Sender is the slice of the telebot API the notifier needs.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Telegram sends engine notifications through the Bot API.
type Telegram struct {
	sender   Sender
	adminIDs []int64
	breaker  *Breaker
	log      *slog.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewTelegram builds a notifier for the given admin set.
func NewTelegram(sender Sender, adminIDs []int64, log *slog.Logger) *Telegram {
	if log == nil {
		log = slog.Default()
	}

	return &Telegram{
		sender:   sender,
		adminIDs: adminIDs,
		breaker:  NewBreaker(),
		log:      log,
		sleep:    sleepCtx,
	}
}

// NotifyUser delivers text to a single chat, retrying transient failures.
func (t *Telegram) NotifyUser(ctx context.Context, userID int64, text string) error {
	return t.send(ctx, userID, text)
}

// NotifyAdmins delivers text to every configured admin. Delivery to one
// admin failing never blocks the rest; the last failure is returned.
func (t *Telegram) NotifyAdmins(ctx context.Context, text string) error {
	var lastErr error
	for _, id := range t.adminIDs {
		if err := t.send(ctx, id, text); err != nil {
			t.log.Error("admin notification failed",
				slog.Int64("admin_id", id),
				slog.String("error", sanitizeError(err)),
			)
			lastErr = err
		}
	}

	return lastErr
}

// Broadcast fans text out to every id and returns the delivered/failed
// split. A failed chat is counted and skipped, never retried beyond the
// per-send budget, and never aborts the run.
func (t *Telegram) Broadcast(ctx context.Context, ids []int64, text string) (delivered, failed int) {
	for _, id := range ids {
		if ctx.Err() != nil {
			failed += len(ids) - delivered - failed
			break
		}

		err := t.send(ctx, id, text)
		metrics.RecordBroadcastDelivery(err == nil)
		if err != nil {
			failed++
			t.log.Warn("broadcast delivery failed",
				slog.Int64("user_id", id),
				slog.String("error", sanitizeError(err)),
			)
			continue
		}
		delivered++

		// Pace the fan-out below Telegram's per-second ceiling.
		if err := t.sleep(ctx, broadcastPause); err != nil {
			break
		}
	}

	return delivered, failed
}

func (t *Telegram) send(ctx context.Context, chatID int64, text string) error {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = t.breaker.Do(func() error {
			_, err := t.sender.Send(tele.ChatID(chatID), text)
			return err
		})
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrDeliveryPaused) || !isTransient(lastErr) || attempt == maxAttempts {
			return lastErr
		}

		if err := t.sleep(ctx, retryDelay(lastErr, attempt, retryBackoff)); err != nil {
			return err
		}
	}

	return lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
