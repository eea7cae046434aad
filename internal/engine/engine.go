// Package engine implements the entitlement rules behind the bot: the ban
// gate, the one-free-redeem quota, premium key redemption, and the redeem
// request lifecycle. It never talks to Telegram directly; outbound messages
// go through the Notifier.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aizen-labs/premium-bot/internal/apperr"
	"github.com/aizen-labs/premium-bot/internal/auth"
	"github.com/aizen-labs/premium-bot/internal/domain"
	"github.com/aizen-labs/premium-bot/internal/keystore"
	"github.com/aizen-labs/premium-bot/internal/ledger"
	"github.com/aizen-labs/premium-bot/internal/registry"
	"github.com/aizen-labs/premium-bot/internal/session"
	"github.com/aizen-labs/premium-bot/pkg/config"
	"github.com/aizen-labs/premium-bot/pkg/metrics"
)

// Notifier delivers engine-originated messages. Implementations must not
// block indefinitely; a failed delivery is reported, never retried here.
type Notifier interface {
	NotifyUser(ctx context.Context, userID int64, text string) error
	NotifyAdmins(ctx context.Context, text string) error
	// Broadcast sends text to every id and returns the delivered/failed split.
	// Individual failures never abort the fan-out.
	Broadcast(ctx context.Context, ids []int64, text string) (delivered, failed int)
}

// Engine coordinates the entitlement stores. State changes always commit to
// the stores before any notification goes out, so a lost Telegram delivery
// can never desynchronize the records.
type Engine struct {
	users    registry.UserRegistry
	keys     keystore.KeyStore
	requests ledger.Ledger
	sessions session.Machine
	authz    *auth.Authorizer
	notifier Notifier
	premium  config.PremiumConfig
	log      *slog.Logger
	now      func() time.Time
}

// New wires the entitlement engine. The notifier may be nil in tests.
func New(
	users registry.UserRegistry,
	keys keystore.KeyStore,
	requests ledger.Ledger,
	sessions session.Machine,
	authz *auth.Authorizer,
	notifier Notifier,
	premium config.PremiumConfig,
	log *slog.Logger,
) *Engine {
	if log == nil {
		log = slog.Default()
	}

	return &Engine{
		users:    users,
		keys:     keys,
		requests: requests,
		sessions: sessions,
		authz:    authz,
		notifier: notifier,
		premium:  premium,
		log:      log,
		now:      time.Now,
	}
}

// Start registers the account and resets any conversation in progress.
func (e *Engine) Start(ctx context.Context, id Identity) (*domain.User, error) {
	user, err := e.gate(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := e.sessions.Clear(ctx, id.ID); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
		e.log.Warn("failed to reset session on start", slog.Int64("user_id", id.ID), slog.Any("error", err))
	}

	return user, nil
}

// BeginRedeem opens the details conversation, or explains why it cannot:
// premium users redeem without limit, free users get exactly one.
func (e *Engine) BeginRedeem(ctx context.Context, id Identity) (string, error) {
	user, err := e.gate(ctx, id)
	if err != nil {
		return "", err
	}

	if !user.PremiumActive(e.now()) && user.RedeemUsed {
		return msgQuotaExhausted, nil
	}

	stored, err := e.sessions.Get(ctx, id.ID)
	if err == nil && stored != nil && stored.CurrentState == session.StateAwaitingDetails {
		// A repeated tap re-issues the prompt instead of failing the
		// conversation that is already open.
		return msgRedeemPrompt, nil
	}

	if err := e.sessions.TransitionTo(ctx, id.ID, session.StateAwaitingDetails); err != nil {
		return "", apperr.Internal(err)
	}

	return msgRedeemPrompt, nil
}

// SubmitDetails files the redeem request. Details are free-form text; the
// quota is claimed and the session closed before the admin alert is sent.
func (e *Engine) SubmitDetails(ctx context.Context, id Identity, details string) (string, error) {
	user, err := e.gate(ctx, id)
	if err != nil {
		return "", err
	}

	stored, err := e.sessions.Get(ctx, id.ID)
	if err != nil || stored == nil || stored.CurrentState != session.StateAwaitingDetails {
		return "", apperr.InvalidArgument("No redeem in progress. Tap 🎁 Redeem to start.")
	}

	details = strings.TrimSpace(details)
	if details == "" {
		return "", apperr.InvalidArgument(msgDetailsEmpty)
	}

	premiumActive := user.PremiumActive(e.now())
	if !premiumActive {
		// The registry claim is atomic, so two in-flight submissions can
		// never both spend the single free redeem.
		consumed, err := e.users.MarkRedeemUsed(ctx, id.ID)
		if err != nil {
			return "", apperr.Internal(err)
		}
		if !consumed {
			if err := e.sessions.Clear(ctx, id.ID); err != nil {
				e.log.Warn("failed to clear session", slog.Int64("user_id", id.ID), slog.Any("error", err))
			}
			return msgQuotaExhausted, nil
		}
	}

	req, err := e.requests.Submit(ctx, id.ID, id.Username, details)
	if err != nil {
		return "", apperr.Internal(err)
	}

	if err := e.sessions.Clear(ctx, id.ID); err != nil {
		e.log.Warn("failed to clear session", slog.Int64("user_id", id.ID), slog.Any("error", err))
	}

	metrics.RecordRequestSubmitted()
	e.log.Info("redeem request submitted",
		slog.Int64("request_id", req.ID),
		slog.Int64("user_id", id.ID),
		slog.Bool("premium", premiumActive),
	)

	if err := e.notifier.NotifyAdmins(ctx, adminRedeemAlert(req)); err != nil {
		e.log.Error("failed to alert admins about redeem request",
			slog.Int64("request_id", req.ID), slog.Any("error", err))
	}

	return redeemSubmittedMessage(req.ID), nil
}

// RedeemKey consumes a premium key and grants premium time. An active
// premium term is extended rather than replaced.
func (e *Engine) RedeemKey(ctx context.Context, id Identity, token string) (string, error) {
	user, err := e.gate(ctx, id)
	if err != nil {
		return "", err
	}

	token = strings.ToUpper(strings.TrimSpace(token))
	if token == "" {
		return "", apperr.InvalidArgument("Usage: /key YOUR-KEY")
	}

	now := e.now()

	key, err := e.keys.Redeem(ctx, token, id.ID, now)
	if err != nil {
		switch {
		case errors.Is(err, keystore.ErrKeyNotFound):
			metrics.RecordKeyRedemption("not_found")
			return "", apperr.NotFound("Key")
		case errors.Is(err, keystore.ErrKeyAlreadyUsed):
			metrics.RecordKeyRedemption("already_used")
			return "", apperr.AlreadyUsed()
		case errors.Is(err, keystore.ErrKeyExpired):
			metrics.RecordKeyRedemption("expired")
			return "", apperr.Expired()
		default:
			metrics.RecordKeyRedemption("error")
			return "", apperr.Internal(err)
		}
	}

	base := now
	if user.PremiumActive(now) {
		base = *user.PremiumUntil
	}
	until := base.Add(time.Duration(key.Days) * 24 * time.Hour)

	if err := e.users.GrantPremium(ctx, id.ID, until); err != nil {
		return "", apperr.Internal(err)
	}

	metrics.RecordKeyRedemption("success")
	e.log.Info("premium key redeemed",
		slog.Int64("user_id", id.ID),
		slog.Int("days", key.Days),
		slog.Time("until", until),
	)

	return keyRedeemedMessage(until), nil
}

// Status renders the caller's entitlement summary.
func (e *Engine) Status(ctx context.Context, id Identity) (string, error) {
	user, err := e.gate(ctx, id)
	if err != nil {
		return "", err
	}

	return statusMessage(user, e.now()), nil
}

// PremiumInfo renders the premium pitch with the configured price.
func (e *Engine) PremiumInfo(ctx context.Context, id Identity) (string, error) {
	if _, err := e.gate(ctx, id); err != nil {
		return "", err
	}

	return premiumPitchMessage(e.premium.Price, e.premium.Currency), nil
}

// Cancel abandons the details conversation, if one is open.
func (e *Engine) Cancel(ctx context.Context, id Identity) (string, error) {
	if _, err := e.gate(ctx, id); err != nil {
		return "", err
	}

	stored, err := e.sessions.Get(ctx, id.ID)
	if err != nil || stored == nil || stored.CurrentState == session.StateIdle {
		return msgNothingToCancel, nil
	}

	if err := e.sessions.Clear(ctx, id.ID); err != nil {
		return "", apperr.Internal(err)
	}

	return msgCancelled, nil
}

// Approve grants a pending redeem request. The decision commits to the
// ledger before the requester is notified.
func (e *Engine) Approve(ctx context.Context, admin Identity, requestID int64) (*domain.RedeemRequest, error) {
	if !e.authz.IsAdmin(admin.ID) {
		return nil, apperr.Unauthorized()
	}

	req, err := e.requests.Resolve(ctx, requestID, domain.StatusApproved, "")
	if err != nil {
		return nil, e.mapLedgerError(err, requestID)
	}

	metrics.RecordResolution("approved")
	e.log.Info("redeem request approved",
		slog.Int64("request_id", requestID),
		slog.Int64("admin_id", admin.ID),
	)

	e.notifyResolution(ctx, req)
	return req, nil
}

// Reject declines a pending redeem request with a reason.
func (e *Engine) Reject(ctx context.Context, admin Identity, requestID int64, reason string) (*domain.RedeemRequest, error) {
	if !e.authz.IsAdmin(admin.ID) {
		return nil, apperr.Unauthorized()
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "Not specified"
	}

	req, err := e.requests.Resolve(ctx, requestID, domain.StatusRejected, reason)
	if err != nil {
		return nil, e.mapLedgerError(err, requestID)
	}

	metrics.RecordResolution("rejected")
	e.log.Info("redeem request rejected",
		slog.Int64("request_id", requestID),
		slog.Int64("admin_id", admin.ID),
		slog.String("reason", reason),
	)

	e.notifyResolution(ctx, req)
	return req, nil
}

// GenerateKey issues a fresh premium key valid for the given number of days.
func (e *Engine) GenerateKey(ctx context.Context, admin Identity, days int) (string, error) {
	if !e.authz.IsAdmin(admin.ID) {
		return "", apperr.Unauthorized()
	}

	key, err := e.keys.Generate(ctx, days, e.now())
	if err != nil {
		if errors.Is(err, keystore.ErrInvalidDays) {
			return "", apperr.InvalidArgument("Days must be a positive number. Usage: /genkey <days>")
		}
		return "", apperr.Internal(err)
	}

	metrics.RecordKeyGenerated()
	e.log.Info("premium key generated",
		slog.Int("days", days),
		slog.Int64("admin_id", admin.ID),
	)

	return keyGeneratedMessage(key), nil
}

// SetBan flips the ban flag for a known user.
func (e *Engine) SetBan(ctx context.Context, admin Identity, userID int64, banned bool) error {
	if !e.authz.IsAdmin(admin.ID) {
		return apperr.Unauthorized()
	}

	if err := e.users.SetBanned(ctx, userID, banned); err != nil {
		if errors.Is(err, registry.ErrUserNotFound) {
			return apperr.NotFound("User")
		}
		return apperr.Internal(err)
	}

	action := "ban"
	if !banned {
		action = "unban"
	}
	metrics.RecordBanAction(action)
	e.log.Info("ban flag changed",
		slog.Int64("user_id", userID),
		slog.Bool("banned", banned),
		slog.Int64("admin_id", admin.ID),
	)

	return nil
}

// Broadcast sends text to every known user and reports the delivery split.
func (e *Engine) Broadcast(ctx context.Context, admin Identity, text string) (BroadcastReport, error) {
	if !e.authz.IsAdmin(admin.ID) {
		return BroadcastReport{}, apperr.Unauthorized()
	}

	if strings.TrimSpace(text) == "" {
		return BroadcastReport{}, apperr.InvalidArgument("Usage: /broadcast <message>")
	}

	ids, err := e.users.AllIDs(ctx)
	if err != nil {
		return BroadcastReport{}, apperr.Internal(err)
	}

	delivered, failed := e.notifier.Broadcast(ctx, ids, text)

	report := BroadcastReport{
		Attempted: len(ids),
		Delivered: delivered,
		Failed:    failed,
	}
	e.log.Info("broadcast finished",
		slog.Int("attempted", report.Attempted),
		slog.Int("delivered", report.Delivered),
		slog.Int("failed", report.Failed),
	)

	return report, nil
}

// Pending lists unresolved redeem requests, oldest first.
func (e *Engine) Pending(ctx context.Context, admin Identity) ([]*domain.RedeemRequest, error) {
	if !e.authz.IsAdmin(admin.ID) {
		return nil, apperr.Unauthorized()
	}

	pending, err := e.requests.Pending(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	return pending, nil
}

// gate loads the account and enforces the ban flag. Every engine operation
// passes through here first.
func (e *Engine) gate(ctx context.Context, id Identity) (*domain.User, error) {
	user, err := e.users.GetOrCreate(ctx, id.ID, id.Username)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	if user.Banned {
		return nil, &apperr.Error{
			Kind:        apperr.KindUnauthorized,
			Message:     "user is banned",
			UserMessage: msgBanned,
			Severity:    apperr.SeverityLow,
		}
	}

	return user, nil
}

func (e *Engine) mapLedgerError(err error, requestID int64) error {
	switch {
	case errors.Is(err, ledger.ErrRequestNotFound):
		return apperr.NotFound("Request")
	case errors.Is(err, ledger.ErrAlreadyResolved):
		return apperr.AlreadyResolved(requestID)
	default:
		return apperr.Internal(err)
	}
}

func (e *Engine) notifyResolution(ctx context.Context, req *domain.RedeemRequest) {
	var text string
	switch req.Status {
	case domain.StatusApproved:
		text = requestApprovedMessage(req.ID)
	case domain.StatusRejected:
		text = requestRejectedMessage(req.ID, req.Reason)
	default:
		return
	}

	if err := e.notifier.NotifyUser(ctx, req.UserID, text); err != nil {
		e.log.Error("failed to notify requester about resolution",
			slog.Int64("request_id", req.ID),
			slog.Int64("user_id", req.UserID),
			slog.Any("error", err),
		)
	}
}
