// Package middleware holds cross-cutting telebot middlewares shared between
// the router chain and the bot bootstrap.
package middleware

import (
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/aizen-labs/premium-bot/internal/bot/handlers"
	"github.com/aizen-labs/premium-bot/pkg/metrics"
)

// Metrics measures execution time and status for bot handlers.
func Metrics(next handlers.Handler) handlers.Handler {
	if next == nil {
		return nil
	}

	return func(c telebot.Context) error {
		start := time.Now()
		err := next(c)

		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.RecordUpdate(actionLabel(c), status, time.Since(start))

		return err
	}
}

// actionLabel names the update for metric labels without leaking message
// bodies into the label space.
func actionLabel(c telebot.Context) string {
	if c == nil {
		return "unknown"
	}

	if cb := c.Callback(); cb != nil && cb.Data != "" {
		return cb.Data
	}

	text := c.Text()
	switch {
	case text == "":
		return "unknown"
	case text[0] == '/':
		for i := 0; i < len(text); i++ {
			if text[i] == ' ' || text[i] == '@' {
				return text[:i]
			}
		}
		return text
	default:
		return "text"
	}
}
