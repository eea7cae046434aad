package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/aizen-labs/premium-bot/internal/apperr"
	"github.com/aizen-labs/premium-bot/internal/bot/handlers"
	"github.com/aizen-labs/premium-bot/pkg/logger"
)

// RecoveryMiddleware catches panics, reports them via the centralized
// handler, and answers the user instead of dropping the update.
func RecoveryMiddleware(log *slog.Logger, errHandler *apperr.Handler) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic recovered in handler",
						slog.Any("panic", r),
						slog.String("stack", string(debug.Stack())),
					)

					userMsg := "⚠️ Something went wrong. Please try again later."
					if errHandler != nil {
						appErr := apperr.Internal(fmt.Errorf("panic recovered: %v", r))
						if msg := errHandler.Handle(context.Background(), appErr); msg != "" {
							userMsg = msg
						}
					}

					if c != nil {
						if sendErr := c.Send(userMsg); sendErr != nil {
							log.Error("failed to notify user about panic", slog.Any("error", sendErr))
						}
					}

					err = nil
				}
			}()

			return next(c)
		}
	}
}

// ErrorHandlingMiddleware turns handler errors into user-facing replies.
// Policy denials (ban, quota, bad keys) surface here as apperr values.
func ErrorHandlingMiddleware(errHandler *apperr.Handler) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			userMsg := "⚠️ Something went wrong. Please try again later."
			if errHandler != nil {
				ctx := logger.WithCorrelationID(context.Background())
				if msg := errHandler.Handle(ctx, err); msg != "" {
					userMsg = msg
				}
			}

			if c != nil {
				_ = c.Send(userMsg)
			}

			return nil
		}
	}
}

// LoggingMiddleware logs basic telemetry about incoming updates. Free-text
// content is never logged; it may carry account credentials.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			start := time.Now()

			userID := int64(0)
			if c != nil && c.Sender() != nil {
				userID = c.Sender().ID
			}

			err := next(c)
			log.Info("handled update",
				slog.Int64("user_id", userID),
				slog.String("action", actionLabel(c)),
				slog.Duration("duration", time.Since(start)),
				slog.Any("error", err),
			)

			return err
		}
	}
}

// actionLabel names the update for logs and metrics without leaking message
// bodies: commands keep their first word, callbacks their data, and any
// other text collapses to "text".
func actionLabel(c telebot.Context) string {
	if c == nil {
		return "unknown"
	}

	if cb := c.Callback(); cb != nil && cb.Data != "" {
		return cb.Data
	}

	text := c.Text()
	if len(text) > 0 && text[0] == '/' {
		return commandName(text)
	}
	if text != "" {
		return "text"
	}

	return "unknown"
}
