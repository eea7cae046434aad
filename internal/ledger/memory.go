package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aizen-labs/premium-bot/internal/domain"
)

// MemoryLedger keeps redeem requests in process memory. Id assignment and
// resolution both happen under the ledger lock.
type MemoryLedger struct {
	mu       sync.Mutex
	requests map[int64]*domain.RedeemRequest
	nextID   int64
}

// NewMemoryLedger returns an in-memory Ledger implementation.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		requests: make(map[int64]*domain.RedeemRequest),
		nextID:   1,
	}
}

func (l *MemoryLedger) Submit(ctx context.Context, userID int64, username, details string) (*domain.RedeemRequest, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	req := &domain.RedeemRequest{
		ID:        l.nextID,
		UserID:    userID,
		Username:  username,
		Details:   details,
		Status:    domain.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	l.nextID++
	l.requests[req.ID] = req

	copied := *req
	return &copied, nil
}

func (l *MemoryLedger) Get(ctx context.Context, id int64) (*domain.RedeemRequest, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	req, ok := l.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}

	copied := *req
	return &copied, nil
}

func (l *MemoryLedger) Resolve(ctx context.Context, id int64, status domain.RequestStatus, reason string) (*domain.RedeemRequest, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	req, ok := l.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	if req.Status != domain.StatusPending {
		return nil, ErrAlreadyResolved
	}

	resolvedAt := time.Now().UTC()
	req.Status = status
	req.Reason = reason
	req.ResolvedAt = &resolvedAt

	copied := *req
	return &copied, nil
}

func (l *MemoryLedger) Pending(ctx context.Context) ([]*domain.RedeemRequest, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var pending []*domain.RedeemRequest
	for _, req := range l.requests {
		if req.Status == domain.StatusPending {
			copied := *req
			pending = append(pending, &copied)
		}
	}

	sort.Slice(pending, func(i, j int) bool { return pending[i].ID < pending[j].ID })
	return pending, nil
}
