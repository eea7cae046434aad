package handlers

import (
	"context"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/aizen-labs/premium-bot/internal/bot/keyboard"
	"github.com/aizen-labs/premium-bot/internal/engine"
)

const welcomeText = "👋 Welcome to Premium Redeem Bot!\n\n" +
	"🎁 Redeem a premium account (one free redeem per user)\n" +
	"💎 Go premium for unlimited redeems\n\n" +
	"Pick an option below 👇"

// NewStartHandler registers the user and shows the main menu.
func NewStartHandler(eng *engine.Engine, kb *keyboard.Builder, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		id, ok := identityFrom(c)
		if !ok {
			log.Warn("start handler invoked without sender")
			return nil
		}

		user, err := eng.Start(context.Background(), id)
		if err != nil {
			return err
		}

		greeting := welcomeText
		if user.PremiumActive(time.Now()) {
			greeting = "👋 Welcome back, premium member!\n\nPick an option below 👇"
		}

		return c.Send(greeting, kb.MainMenu())
	}
}

// NewHelpHandler lists the available commands.
func NewHelpHandler(log *slog.Logger) Handler {
	const helpText = "📖 Commands\n\n" +
		"/start - open the main menu\n" +
		"/status - your premium and redeem status\n" +
		"/key KEY - activate a premium key\n" +
		"/cancel - abort the current operation\n" +
		"/help - this message"

	return func(c telebot.Context) error {
		if c == nil {
			return nil
		}

		return c.Send(helpText)
	}
}
