package logger

import (
	"context"
	"errors"
	"log/slog"
)

// FanoutHandler duplicates records to every wrapped handler. Used to mirror
// warn+ records into Sentry next to the primary sink.
type FanoutHandler struct {
	handlers []slog.Handler
}

func NewFanoutHandler(handlers ...slog.Handler) *FanoutHandler {
	return &FanoutHandler{handlers: handlers}
}

func (h *FanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, next := range h.handlers {
		if next.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

func (h *FanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	wrapped := make([]slog.Handler, 0, len(h.handlers))
	for _, next := range h.handlers {
		wrapped = append(wrapped, next.WithAttrs(attrs))
	}

	return &FanoutHandler{handlers: wrapped}
}

func (h *FanoutHandler) WithGroup(name string) slog.Handler {
	wrapped := make([]slog.Handler, 0, len(h.handlers))
	for _, next := range h.handlers {
		wrapped = append(wrapped, next.WithGroup(name))
	}

	return &FanoutHandler{handlers: wrapped}
}

func (h *FanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, next := range h.handlers {
		if !next.Enabled(ctx, record.Level) {
			continue
		}
		if err := next.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
