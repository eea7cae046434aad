package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSender struct {
	mu       sync.Mutex
	sent     map[int64]int
	failFor  map[int64]error
	failOnce map[int64]error
}

func newFakeSender() *fakeSender {
	return &fakeSender{
		sent:     make(map[int64]int),
		failFor:  make(map[int64]error),
		failOnce: make(map[int64]error),
	}
}

func (f *fakeSender) Send(to tele.Recipient, _ interface{}, _ ...interface{}) (*tele.Message, error) {
	chatID, ok := to.(tele.ChatID)
	if !ok {
		return nil, errors.New("unexpected recipient type")
	}
	id := int64(chatID)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.failOnce[id]; ok {
		delete(f.failOnce, id)
		return nil, err
	}
	if err := f.failFor[id]; err != nil {
		return nil, err
	}

	f.sent[id]++
	return &tele.Message{}, nil
}

func (f *fakeSender) sentCount(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[id]
}

func newTestNotifier(sender Sender, adminIDs ...int64) *Telegram {
	n := NewTelegram(sender, adminIDs, testLogger())
	n.sleep = func(context.Context, time.Duration) error { return nil }
	return n
}

func TestTelegram_NotifyUser(t *testing.T) {
	sender := newFakeSender()
	n := newTestNotifier(sender)

	err := n.NotifyUser(context.Background(), 42, "hello")

	require.NoError(t, err)
	assert.Equal(t, 1, sender.sentCount(42))
}

func TestTelegram_NotifyUserRetriesTransient(t *testing.T) {
	sender := newFakeSender()
	sender.failOnce[42] = &tele.Error{Code: 502, Description: "bad gateway"}
	n := newTestNotifier(sender)

	err := n.NotifyUser(context.Background(), 42, "hello")

	require.NoError(t, err)
	assert.Equal(t, 1, sender.sentCount(42))
}

func TestTelegram_NotifyUserPermanentFailure(t *testing.T) {
	sender := newFakeSender()
	blocked := &tele.Error{Code: 403, Description: "bot was blocked by the user"}
	sender.failFor[42] = blocked
	n := newTestNotifier(sender)

	err := n.NotifyUser(context.Background(), 42, "hello")

	assert.ErrorIs(t, err, blocked)
	assert.Equal(t, 0, sender.sentCount(42))
}

func TestTelegram_NotifyUserStopsWhilePaused(t *testing.T) {
	sender := newFakeSender()
	sender.failFor[42] = &tele.Error{Code: 502, Description: "bad gateway"}
	n := newTestNotifier(sender)

	// Trip the breaker so the next delivery is refused outright.
	for i := 0; i < breakerMinRequests; i++ {
		_ = n.breaker.Do(func() error { return errors.New("boom") })
	}

	err := n.NotifyUser(context.Background(), 42, "hello")

	assert.ErrorIs(t, err, ErrDeliveryPaused)
	assert.Equal(t, 0, sender.sentCount(42))
}

func TestTelegram_NotifyAdminsContinuesPastFailure(t *testing.T) {
	sender := newFakeSender()
	sender.failFor[2] = &tele.Error{Code: 403, Description: "blocked"}
	n := newTestNotifier(sender, 1, 2, 3)

	err := n.NotifyAdmins(context.Background(), "alert")

	assert.Error(t, err)
	assert.Equal(t, 1, sender.sentCount(1))
	assert.Equal(t, 1, sender.sentCount(3))
}

func TestTelegram_Broadcast(t *testing.T) {
	sender := newFakeSender()
	blocked := &tele.Error{Code: 403, Description: "blocked"}

	var ids []int64
	for i := int64(1); i <= 100; i++ {
		ids = append(ids, i)
	}
	sender.failFor[10] = blocked
	sender.failFor[20] = blocked
	sender.failFor[30] = blocked

	n := newTestNotifier(sender)

	delivered, failed := n.Broadcast(context.Background(), ids, "announcement")

	assert.Equal(t, 97, delivered)
	assert.Equal(t, 3, failed)
	assert.Equal(t, 1, sender.sentCount(100))
}

func TestTelegram_BroadcastStopsOnCancel(t *testing.T) {
	sender := newFakeSender()
	n := newTestNotifier(sender)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	delivered, failed := n.Broadcast(ctx, []int64{1, 2, 3}, "announcement")

	assert.Equal(t, 0, delivered)
	assert.Equal(t, 3, failed)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "flood", err: tele.FloodError{RetryAfter: 5}, want: true},
		{name: "server error", err: &tele.Error{Code: 502}, want: true},
		{name: "client error", err: &tele.Error{Code: 403}, want: false},
		{name: "context canceled", err: context.Canceled, want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "plain error", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTransient(tt.err))
		})
	}
}

func TestRetryDelay(t *testing.T) {
	base := 500 * time.Millisecond

	flood := tele.FloodError{RetryAfter: 7}
	assert.Equal(t, 7*time.Second, retryDelay(flood, 1, base))

	assert.Equal(t, base, retryDelay(errors.New("x"), 1, base))
	assert.Equal(t, 2*base, retryDelay(errors.New("x"), 2, base))
}

func TestSanitizeError(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot12345:AAbbCCdd_ee/sendMessage": timeout`)

	assert.NotContains(t, sanitizeError(err), "12345:AAbbCCdd_ee")
	assert.Contains(t, sanitizeError(err), "bot<redacted>")
}

func TestBreaker_OpensAfterFailureStreak(t *testing.T) {
	b := NewBreaker()
	boom := errors.New("boom")

	for i := 0; i < breakerMinRequests; i++ {
		_ = b.Do(func() error { return boom })
	}

	err := b.Do(func() error { return nil })
	assert.ErrorIs(t, err, ErrDeliveryPaused)
}

func TestBreaker_StaysClosedOnSuccess(t *testing.T) {
	b := NewBreaker()

	for i := 0; i < breakerMinRequests*2; i++ {
		require.NoError(t, b.Do(func() error { return nil }))
	}
}
