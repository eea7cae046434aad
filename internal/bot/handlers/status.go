package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/aizen-labs/premium-bot/internal/bot/keyboard"
	"github.com/aizen-labs/premium-bot/internal/engine"
)

// NewStatusHandler renders the caller's entitlement summary. Registered for
// both the /status command and the menu button.
func NewStatusHandler(eng *engine.Engine, kb *keyboard.Builder, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		id, ok := identityFrom(c)
		if !ok {
			log.Warn("status handler invoked without sender")
			return nil
		}

		status, err := eng.Status(context.Background(), id)
		if err != nil {
			return err
		}

		if c.Callback() != nil {
			if err := c.Respond(); err != nil {
				log.Warn("failed to answer callback", slog.Any("error", err))
			}
			return c.Edit(status, kb.BackButton())
		}

		return c.Send(status)
	}
}
