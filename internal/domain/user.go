package domain

import "time"

// User is the entitlement record kept for every Telegram user that has
// interacted with the bot. Records are created lazily with defaults and are
// never deleted, only mutated through the registry operations.
type User struct {
	TelegramID   int64
	Username     string
	IsPremium    bool
	PremiumUntil *time.Time
	RedeemUsed   bool
	Banned       bool
	CreatedAt    time.Time
}

// PremiumActive reports whether the premium grant is valid at the given instant.
// A missing or past expiry means the user is not premium regardless of the flag.
func (u *User) PremiumActive(now time.Time) bool {
	if u == nil || !u.IsPremium || u.PremiumUntil == nil {
		return false
	}

	return u.PremiumUntil.After(now)
}
