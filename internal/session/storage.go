// Package session manages per-user conversation state for the bot.
package session

import "context"

// Storage defines the persistence contract for conversation sessions.
type Storage interface {
	// Get returns the current session for the specified user.
	Get(ctx context.Context, userID int64) (*UserSession, error)
	// Set saves the provided session for the specified user.
	Set(ctx context.Context, userID int64, s *UserSession) error
	// Clear removes the session for the specified user.
	Clear(ctx context.Context, userID int64) error
	// GetAll returns every stored session, used by metrics and the cleaner.
	GetAll(ctx context.Context) ([]*UserSession, error)
}
