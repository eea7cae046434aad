// Package keystore issues and redeems premium activation keys. A key is a
// bearer credential: nothing ties it to a user until redemption.
package keystore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aizen-labs/premium-bot/internal/domain"
)

const tokenBytes = 16 // 128 bits of entropy

var (
	// ErrInvalidDays indicates a non-positive validity length.
	ErrInvalidDays = errors.New("key validity must be a positive number of days")
	// ErrKeyNotFound indicates the token is unknown.
	ErrKeyNotFound = errors.New("premium key not found")
	// ErrKeyAlreadyUsed indicates the key was consumed earlier.
	ErrKeyAlreadyUsed = errors.New("premium key already used")
	// ErrKeyExpired indicates the key's validity window has passed.
	ErrKeyExpired = errors.New("premium key expired")
)

// KeyStore defines premium key operations.
type KeyStore interface {
	// Generate creates an unused key valid for the given number of days.
	Generate(ctx context.Context, days int, now time.Time) (*domain.PremiumKey, error)
	// Redeem consumes the key for userID. Exactly one concurrent redeemer of
	// the same key succeeds; the rest observe ErrKeyAlreadyUsed.
	Redeem(ctx context.Context, token string, userID int64, now time.Time) (*domain.PremiumKey, error)
	// Get returns the key record or ErrKeyNotFound.
	Get(ctx context.Context, token string) (*domain.PremiumKey, error)
}

// NewToken returns a fresh uppercase hex token with 128 bits of entropy.
func NewToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate key token: %w", err)
	}

	return strings.ToUpper(hex.EncodeToString(buf)), nil
}
