package idempotency

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMemoryDeduper_MarkSeen(t *testing.T) {
	d := NewMemoryDeduper(time.Minute)
	ctx := context.Background()

	dup, err := d.MarkSeen(ctx, UpdateKey(1001))
	require.NoError(t, err)
	assert.False(t, dup)

	dup, err = d.MarkSeen(ctx, UpdateKey(1001))
	require.NoError(t, err)
	assert.True(t, dup)

	dup, err = d.MarkSeen(ctx, UpdateKey(1002))
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestMemoryDeduper_ConcurrentFirstWriterWins(t *testing.T) {
	d := NewMemoryDeduper(time.Minute)
	ctx := context.Background()

	const workers = 20

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		firsts int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dup, err := d.MarkSeen(ctx, UpdateKey(5))
			if assert.NoError(t, err) && !dup {
				mu.Lock()
				firsts++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, firsts)
}

func TestRedisDeduper_MarkSeen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	d := NewRedisDeduper(client, time.Minute, testLogger())
	ctx := context.Background()

	dup, err := d.MarkSeen(ctx, UpdateKey(1001))
	require.NoError(t, err)
	assert.False(t, dup)

	dup, err = d.MarkSeen(ctx, UpdateKey(1001))
	require.NoError(t, err)
	assert.True(t, dup)
}

func TestRedisDeduper_TTLExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	d := NewRedisDeduper(client, time.Second, testLogger())
	ctx := context.Background()

	_, err := d.MarkSeen(ctx, UpdateKey(1001))
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	dup, err := d.MarkSeen(ctx, UpdateKey(1001))
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestCallbackKey_HidesPayload(t *testing.T) {
	key := CallbackKey(42, "redeem:netflix/secret")

	assert.NotContains(t, key, "secret")
	assert.Equal(t, key, CallbackKey(42, "redeem:netflix/secret"))
	assert.NotEqual(t, key, CallbackKey(43, "redeem:netflix/secret"))
}
