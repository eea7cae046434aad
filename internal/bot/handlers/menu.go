package handlers

import (
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/aizen-labs/premium-bot/internal/bot/keyboard"
)

const devInfoText = "ℹ️ Developer Info\n\n" +
	"🤖 Premium Redeem Bot\n" +
	"🛠 Built with Go and telebot\n" +
	"📬 Questions? Message an admin from the services menu."

// NewBackHandler returns the user to the main menu screen.
func NewBackHandler(kb *keyboard.Builder, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil {
			return nil
		}

		if err := c.Respond(); err != nil {
			log.Warn("failed to answer callback", slog.Any("error", err))
		}

		return c.Edit("Pick an option below 👇", kb.MainMenu())
	}
}

// NewServicesHandler shows the service catalog.
func NewServicesHandler(kb *keyboard.Builder, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil {
			return nil
		}

		if err := c.Respond(); err != nil {
			log.Warn("failed to answer callback", slog.Any("error", err))
		}

		return c.Edit("🛍 Available services:", kb.ServicesMenu(serviceMenuItems()))
	}
}

// NewServiceDetailHandler shows one service card with a redeem shortcut.
func NewServiceDetailHandler(kb *keyboard.Builder, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil {
			return nil
		}

		if err := c.Respond(); err != nil {
			log.Warn("failed to answer callback", slog.Any("error", err))
		}

		slug := callbackPayload(c)
		svc, ok := findService(slug)
		if !ok {
			log.Info("unknown service requested", slog.String("slug", slug))
			return c.Edit("🛍 Available services:", kb.ServicesMenu(serviceMenuItems()))
		}

		card := fmt.Sprintf("%s\n\n%s\n\nTap 🎁 Redeem to request an account.", svc.Title, svc.Description)
		return c.Edit(card, kb.ServiceDetail())
	}
}

// NewDevInfoHandler shows the about screen.
func NewDevInfoHandler(kb *keyboard.Builder, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil {
			return nil
		}

		if err := c.Respond(); err != nil {
			log.Warn("failed to answer callback", slog.Any("error", err))
		}

		return c.Edit(devInfoText, kb.BackButton())
	}
}
