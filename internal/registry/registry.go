// Package registry owns the per-user entitlement records: premium status,
// free-redeem quota, and the ban flag. The entitlement engine is the only
// mutator; everything else reads through the documented operations.
package registry

import (
	"context"
	"errors"
	"time"

	"github.com/aizen-labs/premium-bot/internal/domain"
)

// ErrUserNotFound indicates an operation on a user id the bot has never seen.
var ErrUserNotFound = errors.New("user not found")

// UserRegistry defines the entitlement store operations.
type UserRegistry interface {
	// GetOrCreate returns the existing record or inserts one with defaults:
	// not premium, quota unused, not banned.
	GetOrCreate(ctx context.Context, userID int64, username string) (*domain.User, error)
	// Get returns the record or ErrUserNotFound.
	Get(ctx context.Context, userID int64) (*domain.User, error)
	// SetBanned toggles the ban flag; fails with ErrUserNotFound for unknown ids.
	SetBanned(ctx context.Context, userID int64, banned bool) error
	// MarkRedeemUsed claims the single free redeem. It reports whether this
	// call consumed it; false means the quota was already spent.
	MarkRedeemUsed(ctx context.Context, userID int64) (bool, error)
	// GrantPremium sets the premium flag and expiry.
	GrantPremium(ctx context.Context, userID int64, until time.Time) error
	// RevokeExpired clears the premium flag on records whose expiry has passed
	// and returns how many were downgraded. Lazy expiry checks stay
	// authoritative; this keeps stored records honest.
	RevokeExpired(ctx context.Context, now time.Time) (int64, error)
	// AllIDs returns every known user id, for broadcast.
	AllIDs(ctx context.Context) ([]int64, error)
}
