package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryDeduper remembers processed updates in process memory. Entries past
// their TTL are dropped lazily on the next lookup touching the map.
type MemoryDeduper struct {
	mu        sync.Mutex
	seen      map[string]time.Time
	ttl       time.Duration
	lastSweep time.Time
}

var _ Deduper = (*MemoryDeduper)(nil)

// NewMemoryDeduper returns an in-memory deduper.
func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &MemoryDeduper{
		seen: make(map[string]time.Time),
		ttl:  ttl,
	}
}

func (d *MemoryDeduper) MarkSeen(ctx context.Context, key string) (bool, error) {
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if now.Sub(d.lastSweep) > d.ttl {
		for k, expiry := range d.seen {
			if now.After(expiry) {
				delete(d.seen, k)
			}
		}
		d.lastSweep = now
	}

	if expiry, ok := d.seen[key]; ok && now.Before(expiry) {
		return true, nil
	}

	d.seen[key] = now.Add(d.ttl)
	return false, nil
}
