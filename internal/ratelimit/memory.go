package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter enforces a sliding-window limit in process memory. Used when
// redis is disabled; state is per instance.
type MemoryLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[int64][]time.Time
}

// NewMemoryLimiter returns an in-memory sliding-window limiter.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[int64][]time.Time),
	}
}

func (m *MemoryLimiter) Allow(ctx context.Context, userID int64) (*Result, error) {
	now := time.Now()
	windowStart := now.Add(-m.window)

	m.mu.Lock()
	defer m.mu.Unlock()

	recent := trimBefore(m.buckets[userID], windowStart)

	allowed := len(recent) < m.limit
	if allowed {
		recent = append(recent, now)
	}
	m.buckets[userID] = recent

	remaining := m.limit - len(recent)
	if remaining < 0 {
		remaining = 0
	}

	result := &Result{
		Allowed:   allowed,
		Remaining: remaining,
		ResetAt:   now.Add(m.window),
	}
	if !allowed {
		return result, ErrLimitExceeded
	}

	return result, nil
}

// Run sweeps idle buckets on the interval until ctx is cancelled. The redis
// limiter expires its keys natively; this is the memory equivalent.
func (m *MemoryLimiter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(2 * m.window)
		}
	}
}

// Sweep drops buckets idle for longer than maxAge.
func (m *MemoryLimiter) Sweep(maxAge time.Duration) {
	if maxAge <= 0 {
		return
	}

	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	for userID, reqs := range m.buckets {
		if len(reqs) == 0 || reqs[len(reqs)-1].Before(cutoff) {
			delete(m.buckets, userID)
		}
	}
}

func trimBefore(reqs []time.Time, windowStart time.Time) []time.Time {
	first := 0
	for first < len(reqs) && reqs[first].Before(windowStart) {
		first++
	}
	if first == 0 {
		return reqs
	}

	copy(reqs, reqs[first:])
	return reqs[:len(reqs)-first]
}
