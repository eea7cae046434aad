// Package handlers implements the asynq task handlers for the maintenance
// sweeps.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/aizen-labs/premium-bot/internal/jobs"
	"github.com/aizen-labs/premium-bot/internal/registry"
)

// PremiumSweepHandler downgrades users whose premium term has lapsed.
// Redemption-time checks stay authoritative; the sweep keeps stored
// records and status screens honest.
type PremiumSweepHandler struct {
	users registry.UserRegistry
	log   *slog.Logger
}

// NewPremiumSweepHandler builds the handler.
func NewPremiumSweepHandler(users registry.UserRegistry, log *slog.Logger) *PremiumSweepHandler {
	if log == nil {
		log = slog.Default()
	}

	return &PremiumSweepHandler{users: users, log: log}
}

// ProcessTask implements asynq.Handler.
func (h *PremiumSweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.PremiumSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}

	now := payload.Now
	if now.IsZero() {
		now = time.Now()
	}

	downgraded, err := h.users.RevokeExpired(ctx, now)
	if err != nil {
		h.log.Error("premium sweep failed", slog.Any("error", err))
		return err
	}

	if downgraded > 0 {
		h.log.Info("premium sweep downgraded users", slog.Int64("count", downgraded))
	}

	return nil
}
