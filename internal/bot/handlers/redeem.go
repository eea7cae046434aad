package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/aizen-labs/premium-bot/internal/bot/keyboard"
	"github.com/aizen-labs/premium-bot/internal/engine"
)

// NewRedeemHandler opens the redeem conversation from the menu button.
// The engine decides whether the quota allows it.
func NewRedeemHandler(eng *engine.Engine, kb *keyboard.Builder, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		id, ok := identityFrom(c)
		if !ok {
			log.Warn("redeem handler invoked without sender")
			return nil
		}

		if err := c.Respond(); err != nil {
			log.Warn("failed to answer callback", slog.Any("error", err))
		}

		reply, err := eng.BeginRedeem(context.Background(), id)
		if err != nil {
			return err
		}

		return c.Send(reply, kb.CancelButton())
	}
}

// NewBuyPremiumHandler shows the premium pitch.
func NewBuyPremiumHandler(eng *engine.Engine, kb *keyboard.Builder, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		id, ok := identityFrom(c)
		if !ok {
			log.Warn("buy premium handler invoked without sender")
			return nil
		}

		if err := c.Respond(); err != nil {
			log.Warn("failed to answer callback", slog.Any("error", err))
		}

		pitch, err := eng.PremiumInfo(context.Background(), id)
		if err != nil {
			return err
		}

		return c.Edit(pitch, kb.BackButton())
	}
}
