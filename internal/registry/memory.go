package registry

import (
	"context"
	"sync"
	"time"

	"github.com/aizen-labs/premium-bot/internal/domain"
)

// MemoryRegistry keeps entitlement records in process memory. Mutations are
// serialized under a single short-held lock; callers receive copies.
type MemoryRegistry struct {
	mu    sync.RWMutex
	users map[int64]*domain.User
}

// NewMemoryRegistry returns an in-memory UserRegistry implementation.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		users: make(map[int64]*domain.User),
	}
}

func (r *MemoryRegistry) GetOrCreate(ctx context.Context, userID int64, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		user = &domain.User{
			TelegramID: userID,
			Username:   username,
			CreatedAt:  time.Now().UTC(),
		}
		r.users[userID] = user
	} else if username != "" && user.Username != username {
		user.Username = username
	}

	copied := *user
	return &copied, nil
}

func (r *MemoryRegistry) Get(ctx context.Context, userID int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}

	copied := *user
	return &copied, nil
}

func (r *MemoryRegistry) SetBanned(ctx context.Context, userID int64, banned bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return ErrUserNotFound
	}

	user.Banned = banned
	return nil
}

func (r *MemoryRegistry) MarkRedeemUsed(ctx context.Context, userID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return false, ErrUserNotFound
	}
	if user.RedeemUsed {
		return false, nil
	}

	user.RedeemUsed = true
	return true, nil
}

func (r *MemoryRegistry) GrantPremium(ctx context.Context, userID int64, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return ErrUserNotFound
	}

	user.IsPremium = true
	expiry := until.UTC()
	user.PremiumUntil = &expiry
	return nil
}

func (r *MemoryRegistry) RevokeExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var downgraded int64
	for _, user := range r.users {
		if user.IsPremium && user.PremiumUntil != nil && !user.PremiumUntil.After(now) {
			user.IsPremium = false
			downgraded++
		}
	}

	return downgraded, nil
}

func (r *MemoryRegistry) AllIDs(ctx context.Context) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int64, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}

	return ids, nil
}
