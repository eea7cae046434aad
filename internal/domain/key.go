package domain

import "time"

// PremiumKey is a bearer credential that grants premium status for a fixed
// number of days when redeemed. A key is single-use: it moves from unused to
// used exactly once, recording who consumed it.
type PremiumKey struct {
	Key       string
	Days      int
	ExpiresAt time.Time
	Used      bool
	UsedBy    *int64
	UsedAt    *time.Time
	CreatedAt time.Time
}

// Expired reports whether the key can no longer be redeemed at the given instant.
func (k *PremiumKey) Expired(now time.Time) bool {
	return k != nil && !now.Before(k.ExpiresAt)
}
