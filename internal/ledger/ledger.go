// Package ledger records redeem requests and their resolution. Every request
// passes through the pending state exactly once and is resolved at most once.
package ledger

import (
	"context"
	"errors"

	"github.com/aizen-labs/premium-bot/internal/domain"
)

var (
	// ErrRequestNotFound indicates an unknown request id.
	ErrRequestNotFound = errors.New("redeem request not found")
	// ErrAlreadyResolved indicates the request left the pending state earlier.
	ErrAlreadyResolved = errors.New("redeem request already resolved")
)

// Ledger defines redeem request bookkeeping. Submit assigns ids atomically;
// concurrent submissions never share or skip an id.
type Ledger interface {
	// Submit stores a new pending request and returns it with its id assigned.
	Submit(ctx context.Context, userID int64, username, details string) (*domain.RedeemRequest, error)
	// Get returns the request or ErrRequestNotFound.
	Get(ctx context.Context, id int64) (*domain.RedeemRequest, error)
	// Resolve moves a pending request to the given terminal status. At most one
	// caller succeeds per request; later calls observe ErrAlreadyResolved.
	Resolve(ctx context.Context, id int64, status domain.RequestStatus, reason string) (*domain.RedeemRequest, error)
	// Pending lists requests still awaiting a decision, oldest first.
	Pending(ctx context.Context) ([]*domain.RedeemRequest, error)
}
