// Package auth answers the single question of whether a Telegram account may
// run operator commands. The admin set is fixed at startup from configuration.
package auth

import "sort"

// Authorizer holds the configured admin allowlist.
type Authorizer struct {
	admins map[int64]struct{}
}

// New builds an Authorizer from the configured admin ids.
func New(adminIDs []int64) *Authorizer {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}

	return &Authorizer{admins: admins}
}

// IsAdmin reports whether userID is on the allowlist.
func (a *Authorizer) IsAdmin(userID int64) bool {
	_, ok := a.admins[userID]
	return ok
}

// AdminIDs returns the allowlist in ascending order, for notification fan-out.
func (a *Authorizer) AdminIDs() []int64 {
	ids := make([]int64, 0, len(a.admins))
	for id := range a.admins {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}
