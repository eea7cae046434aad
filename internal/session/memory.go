package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage keeps sessions in process memory. The default backend when
// redis is not configured.
type MemoryStorage struct {
	mu       sync.RWMutex
	sessions map[int64]*UserSession
}

// NewMemoryStorage returns an in-memory Storage implementation.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		sessions: make(map[int64]*UserSession),
	}
}

func (s *MemoryStorage) Get(ctx context.Context, userID int64) (*UserSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.sessions[userID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := *stored
	return &copied, nil
}

func (s *MemoryStorage) Set(ctx context.Context, userID int64, sess *UserSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *sess
	copied.UserID = userID
	copied.UpdatedAt = time.Now().UTC()
	s.sessions[userID] = &copied

	return nil
}

func (s *MemoryStorage) Clear(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
	return nil
}

func (s *MemoryStorage) GetAll(ctx context.Context) ([]*UserSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*UserSession, 0, len(s.sessions))
	for _, stored := range s.sessions {
		copied := *stored
		out = append(out, &copied)
	}

	return out, nil
}
