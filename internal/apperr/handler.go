package apperr

import (
	"context"
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/aizen-labs/premium-bot/pkg/logger"
)

// Handler converts errors escaping a bot handler into user-facing text and
// reports the severe ones to Sentry. Nothing user-triggered is process-fatal.
type Handler struct {
	log           *slog.Logger
	sentryEnabled bool
}

func NewHandler(log *slog.Logger, sentryEnabled bool) *Handler {
	return &Handler{
		log:           log,
		sentryEnabled: sentryEnabled,
	}
}

// Handle logs the error and returns the message to show the user.
func (h *Handler) Handle(ctx context.Context, err error) string {
	if err == nil {
		return ""
	}

	if ctx == nil {
		ctx = context.Background()
	}

	log := h.log
	if log == nil {
		log = slog.Default()
	}

	attrs := []any{}
	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		attrs = append(attrs, slog.String("correlation_id", correlationID))
	}

	var appErr *Error
	if errors.As(err, &appErr) && appErr != nil {
		attrs = append(attrs,
			slog.String("kind", string(appErr.Kind)),
			slog.String("message", appErr.Message),
			slog.String("severity", string(appErr.Severity)),
		)
		log.Error("application error", attrs...)

		if h.sentryEnabled && (appErr.Severity == SeverityHigh || appErr.Severity == SeverityCritical) {
			h.sendToSentry(err, appErr)
		}

		if appErr.UserMessage != "" {
			return appErr.UserMessage
		}

		return "⚠️ Something went wrong. Please try again later."
	}

	attrs = append(attrs,
		slog.String("message", err.Error()),
		slog.String("severity", string(SeverityHigh)),
	)
	log.Error("unclassified error", attrs...)

	if h.sentryEnabled {
		h.sendToSentry(err, nil)
	}

	return "⚠️ Something went wrong. Please try again later."
}

func (h *Handler) sendToSentry(err error, appErr *Error) {
	sentry.WithScope(func(scope *sentry.Scope) {
		if appErr != nil {
			scope.SetTag("kind", string(appErr.Kind))
			scope.SetTag("severity", string(appErr.Severity))
		}

		sentry.CaptureException(err)
	})
}
