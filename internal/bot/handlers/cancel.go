package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/aizen-labs/premium-bot/internal/bot/keyboard"
	"github.com/aizen-labs/premium-bot/internal/engine"
)

// NewCancelHandler abandons the open conversation and returns the user to
// the main menu. Registered for /cancel and the inline cancel button.
func NewCancelHandler(eng *engine.Engine, kb *keyboard.Builder, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		id, ok := identityFrom(c)
		if !ok {
			log.Warn("cancel handler invoked without sender")
			return nil
		}

		if c.Callback() != nil {
			if err := c.Respond(); err != nil {
				log.Warn("failed to answer callback", slog.Any("error", err))
			}
		}

		reply, err := eng.Cancel(context.Background(), id)
		if err != nil {
			return err
		}

		return c.Send(reply, kb.MainMenu())
	}
}
