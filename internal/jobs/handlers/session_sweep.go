package handlers

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/aizen-labs/premium-bot/internal/jobs"
	"github.com/aizen-labs/premium-bot/internal/session"
)

// SessionSweepHandler clears conversations abandoned mid-redeem.
type SessionSweepHandler struct {
	cleaner *session.Cleaner
	log     *slog.Logger
}

// NewSessionSweepHandler builds the handler.
func NewSessionSweepHandler(cleaner *session.Cleaner, log *slog.Logger) *SessionSweepHandler {
	if log == nil {
		log = slog.Default()
	}

	return &SessionSweepHandler{cleaner: cleaner, log: log}
}

// ProcessTask implements asynq.Handler.
func (h *SessionSweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.SessionSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}

	cleared, err := h.cleaner.SweepOnce(ctx)
	if err != nil {
		h.log.Error("session sweep failed", slog.Any("error", err))
		return err
	}

	if cleared > 0 {
		h.log.Info("session sweep cleared sessions", slog.Int("count", cleared))
	}

	return nil
}
