package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/aizen-labs/premium-bot/internal/bot/keyboard"
	"github.com/aizen-labs/premium-bot/internal/engine"
)

// NewDetailsHandler consumes the free-text message while the sender is in
// the awaiting-details state and files the redeem request.
func NewDetailsHandler(eng *engine.Engine, kb *keyboard.Builder, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		id, ok := identityFrom(c)
		if !ok {
			log.Warn("details handler invoked without sender")
			return nil
		}

		ack, err := eng.SubmitDetails(context.Background(), id, c.Text())
		if err != nil {
			return err
		}

		if err := c.Send(ack); err != nil {
			return err
		}

		return c.Send("Back to the main menu 👇", kb.MainMenu())
	}
}
