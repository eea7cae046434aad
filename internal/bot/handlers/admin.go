package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/aizen-labs/premium-bot/internal/apperr"
	"github.com/aizen-labs/premium-bot/internal/engine"
)

// NewGenKeyHandler issues a premium key: /genkey <days>.
func NewGenKeyHandler(eng *engine.Engine, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		id, ok := identityFrom(c)
		if !ok {
			return nil
		}

		args := c.Args()
		if len(args) != 1 {
			return apperr.InvalidArgument("Usage: /genkey <days>")
		}

		days, err := strconv.Atoi(args[0])
		if err != nil {
			return apperr.InvalidArgument("Days must be a positive number. Usage: /genkey <days>")
		}

		reply, err := eng.GenerateKey(context.Background(), id, days)
		if err != nil {
			return err
		}

		return c.Send(reply, telebot.ModeMarkdown)
	}
}

// NewApproveHandler grants a redeem request: /approve <id>.
func NewApproveHandler(eng *engine.Engine, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		id, ok := identityFrom(c)
		if !ok {
			return nil
		}

		requestID, err := requestIDArg(c, "/approve <id>")
		if err != nil {
			return err
		}

		req, err := eng.Approve(context.Background(), id, requestID)
		if err != nil {
			return err
		}

		return c.Send(fmt.Sprintf("✅ Request #%d approved. The user has been notified.", req.ID))
	}
}

// NewRejectHandler declines a redeem request: /reject <id> [reason].
func NewRejectHandler(eng *engine.Engine, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		id, ok := identityFrom(c)
		if !ok {
			return nil
		}

		args := c.Args()
		if len(args) < 1 {
			return apperr.InvalidArgument("Usage: /reject <id> [reason]")
		}

		requestID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return apperr.InvalidArgument("Request id must be a number. Usage: /reject <id> [reason]")
		}
		reason := strings.Join(args[1:], " ")

		req, err := eng.Reject(context.Background(), id, requestID, reason)
		if err != nil {
			return err
		}

		return c.Send(fmt.Sprintf("❌ Request #%d rejected. The user has been notified.", req.ID))
	}
}

// NewBanHandler flips the ban flag: /ban <user_id> or /unban <user_id>.
func NewBanHandler(eng *engine.Engine, banned bool, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	usage := "Usage: /ban <user_id>"
	verb := "banned"
	if !banned {
		usage = "Usage: /unban <user_id>"
		verb = "unbanned"
	}

	return func(c telebot.Context) error {
		id, ok := identityFrom(c)
		if !ok {
			return nil
		}

		args := c.Args()
		if len(args) != 1 {
			return apperr.InvalidArgument(usage)
		}

		targetID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return apperr.InvalidArgument("User id must be a number. " + usage)
		}

		if err := eng.SetBan(context.Background(), id, targetID, banned); err != nil {
			return err
		}

		return c.Send(fmt.Sprintf("🔨 User %d has been %s.", targetID, verb))
	}
}

// NewBroadcastHandler sends a message to every known user: /broadcast <text>.
func NewBroadcastHandler(eng *engine.Engine, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		id, ok := identityFrom(c)
		if !ok {
			return nil
		}

		text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(c.Text()), "/broadcast"))

		report, err := eng.Broadcast(context.Background(), id, text)
		if err != nil {
			return err
		}

		return c.Send(fmt.Sprintf(
			"📣 Broadcast finished.\nAttempted: %d\nDelivered: %d\nFailed: %d",
			report.Attempted, report.Delivered, report.Failed,
		))
	}
}

// NewPendingHandler lists unresolved redeem requests: /pending.
func NewPendingHandler(eng *engine.Engine, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		id, ok := identityFrom(c)
		if !ok {
			return nil
		}

		pending, err := eng.Pending(context.Background(), id)
		if err != nil {
			return err
		}

		if len(pending) == 0 {
			return c.Send("📭 No pending redeem requests.")
		}

		var b strings.Builder
		fmt.Fprintf(&b, "📬 Pending requests (%d)\n\n", len(pending))
		for _, req := range pending {
			fmt.Fprintf(&b, "#%d @%s (%d) - %s\n", req.ID, req.Username, req.UserID, req.CreatedAt.Format("2006-01-02 15:04"))
		}
		b.WriteString("\nDecide with /approve <id> or /reject <id> [reason].")

		return c.Send(b.String())
	}
}

func requestIDArg(c telebot.Context, usage string) (int64, error) {
	args := c.Args()
	if len(args) != 1 {
		return 0, apperr.InvalidArgument("Usage: " + usage)
	}

	requestID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, apperr.InvalidArgument("Request id must be a number. Usage: " + usage)
	}

	return requestID, nil
}
