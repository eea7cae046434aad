// Package logger builds the application slog logger: leveled JSON or text
// output, file rotation, sensitive-attribute masking, and an optional Sentry
// fan-out for warnings and errors.
package logger

import (
	"io"
	"log/slog"
	"os"

	slogsentry "github.com/samber/slog-sentry/v2"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/aizen-labs/premium-bot/pkg/config"
)

// New constructs the root logger. The returned LevelVar can be adjusted at
// runtime (config hot reload).
func New(cfg config.LoggerConfig, sentryEnabled bool) (*slog.Logger, *slog.LevelVar) {
	level := new(slog.LevelVar)
	if parsed, err := config.ParseLevel(cfg.Level); err == nil {
		level.Set(parsed)
	}

	var out io.Writer = os.Stdout
	if cfg.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	}

	opts := &slog.HandlerOptions{Level: level}

	var base slog.Handler
	if cfg.Format == "text" {
		base = slog.NewTextHandler(out, opts)
	} else {
		base = slog.NewJSONHandler(out, opts)
	}

	handler := NewMaskingHandler(base)
	if sentryEnabled {
		sentryHandler := slogsentry.Option{Level: slog.LevelWarn}.NewSentryHandler()
		return slog.New(NewFanoutHandler(handler, sentryHandler)), level
	}

	return slog.New(handler), level
}
