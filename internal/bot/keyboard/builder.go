// Package keyboard renders the inline keyboards the bot presents. Callback
// data stays within Telegram's 64-byte limit via the encoder.
package keyboard

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"
)

// ServiceItem is a catalog entry rendered as a service button.
type ServiceItem struct {
	Slug  string
	Title string
}

// Builder creates the inline keyboards for each screen.
type Builder struct {
	log *slog.Logger
}

// NewBuilder returns a new Builder instance.
func NewBuilder(log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}

	return &Builder{log: log}
}

// MainMenu builds the idle state menu.
func (b *Builder) MainMenu() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	markup.InlineKeyboard = [][]telebot.InlineButton{
		{
			{Text: "🎁 Redeem", Data: "redeem"},
			{Text: "💎 Buy Premium", Data: "buy_premium"},
		},
		{
			{Text: "🛍 Services", Data: "services"},
			{Text: "👤 Status", Data: "status"},
		},
		{
			{Text: "ℹ️ Dev Info", Data: "dev_info"},
		},
	}
	return markup
}

// ServicesMenu builds one button per catalog entry plus a back button.
func (b *Builder) ServicesMenu(items []ServiceItem) *telebot.ReplyMarkup {
	rows := make([][]telebot.InlineButton, 0, len(items)+1)

	for _, item := range items {
		data, err := EncodeCallback("service", item.Slug)
		if err != nil {
			b.log.Warn("skipping service button", slog.String("slug", item.Slug), slog.Any("error", err))
			continue
		}
		rows = append(rows, []telebot.InlineButton{{Text: item.Title, Data: data}})
	}
	rows = append(rows, []telebot.InlineButton{{Text: "⬅️ Back", Data: "back"}})

	markup := &telebot.ReplyMarkup{}
	markup.InlineKeyboard = rows
	return markup
}

// ServiceDetail builds the redeem/back pair shown under a service card.
func (b *Builder) ServiceDetail() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	markup.InlineKeyboard = [][]telebot.InlineButton{
		{
			{Text: "🎁 Redeem", Data: "redeem"},
			{Text: "⬅️ Back", Data: "services"},
		},
	}
	return markup
}

// BackButton builds a single back-to-menu button.
func (b *Builder) BackButton() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	markup.InlineKeyboard = [][]telebot.InlineButton{
		{
			{Text: "⬅️ Back", Data: "back"},
		},
	}
	return markup
}

// CancelButton builds a single cancel button for the details prompt.
func (b *Builder) CancelButton() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	markup.InlineKeyboard = [][]telebot.InlineButton{
		{
			{Text: "❌ Cancel", Data: "cancel"},
		},
	}
	return markup
}
