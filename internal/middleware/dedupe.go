package middleware

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/aizen-labs/premium-bot/internal/bot/handlers"
	"github.com/aizen-labs/premium-bot/internal/idempotency"
)

// Dedupe drops re-delivered updates so policy operations fire at most once.
// A deduper failure fails open; Telegram-side retries are rare enough that
// availability wins.
func Dedupe(deduper idempotency.Deduper, log *slog.Logger) handlers.Middleware {
	if deduper == nil {
		return func(next handlers.Handler) handlers.Handler {
			return next
		}
	}
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			key := dedupeKey(c)
			if key == "" {
				return next(c)
			}

			seen, err := deduper.MarkSeen(context.Background(), key)
			if err != nil {
				log.Warn("dedupe check failed, letting update through",
					slog.String("key", key), slog.Any("error", err))
				return next(c)
			}
			if seen {
				log.Info("duplicate update dropped", slog.String("key", key))
				return nil
			}

			return next(c)
		}
	}
}

func dedupeKey(c telebot.Context) string {
	if c == nil {
		return ""
	}

	if cb := c.Callback(); cb != nil {
		if sender := c.Sender(); sender != nil {
			return idempotency.CallbackKey(sender.ID, cb.ID+":"+cb.Data)
		}
		return ""
	}

	if update := c.Update(); update.ID != 0 {
		return idempotency.UpdateKey(update.ID)
	}

	return ""
}
