package handlers

import (
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/aizen-labs/premium-bot/internal/bot/keyboard"
	"github.com/aizen-labs/premium-bot/internal/engine"
)

// identityFrom extracts the engine identity of the update's sender.
func identityFrom(c telebot.Context) (engine.Identity, bool) {
	if c == nil || c.Sender() == nil {
		return engine.Identity{}, false
	}

	sender := c.Sender()
	return engine.Identity{ID: sender.ID, Username: sender.Username}, true
}

// callbackPayload returns the data part of the pressed button's callback.
func callbackPayload(c telebot.Context) string {
	cb := c.Callback()
	if cb == nil {
		return ""
	}

	data := strings.TrimPrefix(strings.TrimSpace(cb.Data), "\f")
	_, payload, err := keyboard.DecodeCallback(data)
	if err != nil {
		return ""
	}

	return payload
}
