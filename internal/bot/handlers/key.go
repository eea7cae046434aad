package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/aizen-labs/premium-bot/internal/apperr"
	"github.com/aizen-labs/premium-bot/internal/engine"
)

// NewKeyHandler activates a premium key from the /key command.
func NewKeyHandler(eng *engine.Engine, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		id, ok := identityFrom(c)
		if !ok {
			log.Warn("key handler invoked without sender")
			return nil
		}

		args := c.Args()
		if len(args) != 1 {
			return apperr.InvalidArgument("Usage: /key YOUR-KEY")
		}

		reply, err := eng.RedeemKey(context.Background(), id, args[0])
		if err != nil {
			return err
		}

		return c.Send(reply)
	}
}
