package notify

import (
	"errors"
	"sync"
	"time"
)

const (
	breakerErrorRate    = 0.5
	breakerMinRequests  = 10
	breakerOpenDuration = 30 * time.Second
	breakerProbeBudget  = 3
)

// ErrDeliveryPaused is returned while the breaker keeps outbound Telegram
// calls suspended after a failure streak.
var ErrDeliveryPaused = errors.New("outbound delivery temporarily paused")

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// Breaker suspends Telegram sends when the API keeps failing, so a dead
// network does not burn the whole retry budget on every delivery.
type Breaker struct {
	mu          sync.Mutex
	state       breakerState
	failures    int
	successes   int
	requests    int
	lastFailure time.Time
}

// NewBreaker returns a closed breaker.
func NewBreaker() *Breaker {
	return &Breaker{state: breakerClosed}
}

// Do runs fn unless the breaker is open. Outcomes feed the failure window.
func (b *Breaker) Do(fn func() error) error {
	b.mu.Lock()
	if b.state == breakerOpen {
		if time.Since(b.lastFailure) < breakerOpenDuration {
			b.mu.Unlock()
			return ErrDeliveryPaused
		}
		b.state = breakerHalfOpen
		b.reset()
	}
	if b.state == breakerHalfOpen && b.requests >= breakerProbeBudget {
		b.mu.Unlock()
		return ErrDeliveryPaused
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	b.requests++
	if err != nil {
		b.failures++
		if b.state == breakerHalfOpen {
			b.trip()
		} else if b.requests >= breakerMinRequests &&
			float64(b.failures)/float64(b.requests) >= breakerErrorRate {
			b.trip()
		}
		return err
	}

	b.successes++
	if b.state == breakerHalfOpen && b.successes >= breakerProbeBudget {
		b.state = breakerClosed
		b.reset()
	}

	return nil
}

func (b *Breaker) trip() {
	b.state = breakerOpen
	b.lastFailure = time.Now()
	b.reset()
}

func (b *Breaker) reset() {
	b.failures = 0
	b.successes = 0
	b.requests = 0
}
