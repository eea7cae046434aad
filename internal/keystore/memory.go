package keystore

import (
	"context"
	"sync"
	"time"

	"github.com/aizen-labs/premium-bot/internal/domain"
)

// MemoryKeyStore keeps keys in process memory. Redemption is atomic under the
// store lock, so a key can never be consumed twice.
type MemoryKeyStore struct {
	mu   sync.Mutex
	keys map[string]*domain.PremiumKey
}

// NewMemoryKeyStore returns an in-memory KeyStore implementation.
func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{
		keys: make(map[string]*domain.PremiumKey),
	}
}

func (s *MemoryKeyStore) Generate(ctx context.Context, days int, now time.Time) (*domain.PremiumKey, error) {
	if days <= 0 {
		return nil, ErrInvalidDays
	}

	token, err := NewToken()
	if err != nil {
		return nil, err
	}

	key := &domain.PremiumKey{
		Key:       token,
		Days:      days,
		ExpiresAt: now.UTC().Add(time.Duration(days) * 24 * time.Hour),
		CreatedAt: now.UTC(),
	}

	s.mu.Lock()
	s.keys[token] = key
	s.mu.Unlock()

	copied := *key
	return &copied, nil
}

func (s *MemoryKeyStore) Redeem(ctx context.Context, token string, userID int64, now time.Time) (*domain.PremiumKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.keys[token]
	if !ok {
		return nil, ErrKeyNotFound
	}

	if key.Used {
		return nil, ErrKeyAlreadyUsed
	}

	if key.Expired(now) {
		return nil, ErrKeyExpired
	}

	usedAt := now.UTC()
	key.Used = true
	key.UsedBy = &userID
	key.UsedAt = &usedAt

	copied := *key
	return &copied, nil
}

func (s *MemoryKeyStore) Get(ctx context.Context, token string) (*domain.PremiumKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.keys[token]
	if !ok {
		return nil, ErrKeyNotFound
	}

	copied := *key
	return &copied, nil
}
