package keystore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := NewToken()
		require.NoError(t, err)
		assert.Len(t, token, 32)
		assert.Regexp(t, `^[0-9A-F]{32}$`, token)
		assert.False(t, seen[token], "token collision")
		seen[token] = true
	}
}

func TestMemoryKeyStore_Generate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		days    int
		wantErr error
	}{
		{name: "valid days", days: 30},
		{name: "single day", days: 1},
		{name: "zero days", days: 0, wantErr: ErrInvalidDays},
		{name: "negative days", days: -5, wantErr: ErrInvalidDays},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryKeyStore()

			key, err := store.Generate(context.Background(), tt.days, now)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, key)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.days, key.Days)
			assert.False(t, key.Used)
			assert.Equal(t, now.Add(time.Duration(tt.days)*24*time.Hour), key.ExpiresAt)
		})
	}
}

func TestMemoryKeyStore_Redeem(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("success marks key used", func(t *testing.T) {
		store := NewMemoryKeyStore()
		key, err := store.Generate(ctx, 7, now)
		require.NoError(t, err)

		redeemed, err := store.Redeem(ctx, key.Key, 42, now.Add(time.Hour))

		require.NoError(t, err)
		assert.True(t, redeemed.Used)
		require.NotNil(t, redeemed.UsedBy)
		assert.Equal(t, int64(42), *redeemed.UsedBy)
		require.NotNil(t, redeemed.UsedAt)
	})

	t.Run("unknown token", func(t *testing.T) {
		store := NewMemoryKeyStore()

		_, err := store.Redeem(ctx, "DOESNOTEXIST", 42, now)

		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("second redemption fails", func(t *testing.T) {
		store := NewMemoryKeyStore()
		key, err := store.Generate(ctx, 7, now)
		require.NoError(t, err)

		_, err = store.Redeem(ctx, key.Key, 42, now)
		require.NoError(t, err)

		_, err = store.Redeem(ctx, key.Key, 43, now)
		assert.ErrorIs(t, err, ErrKeyAlreadyUsed)
	})

	t.Run("expired key", func(t *testing.T) {
		store := NewMemoryKeyStore()
		key, err := store.Generate(ctx, 1, now)
		require.NoError(t, err)

		_, err = store.Redeem(ctx, key.Key, 42, now.Add(24*time.Hour+time.Second))

		assert.ErrorIs(t, err, ErrKeyExpired)
	})

	t.Run("redemption at exact expiry instant fails", func(t *testing.T) {
		store := NewMemoryKeyStore()
		key, err := store.Generate(ctx, 1, now)
		require.NoError(t, err)

		_, err = store.Redeem(ctx, key.Key, 42, now.Add(24*time.Hour))

		assert.ErrorIs(t, err, ErrKeyExpired)
	})

	t.Run("used wins over expired", func(t *testing.T) {
		store := NewMemoryKeyStore()
		key, err := store.Generate(ctx, 1, now)
		require.NoError(t, err)

		_, err = store.Redeem(ctx, key.Key, 42, now)
		require.NoError(t, err)

		_, err = store.Redeem(ctx, key.Key, 43, now.Add(48*time.Hour))
		assert.ErrorIs(t, err, ErrKeyAlreadyUsed)
	})
}

func TestMemoryKeyStore_ConcurrentRedeem(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	store := NewMemoryKeyStore()
	key, err := store.Generate(ctx, 30, now)
	require.NoError(t, err)

	const workers = 50

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()

			_, err := store.Redeem(ctx, key.Key, userID, now)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case err == ErrKeyAlreadyUsed:
				conflicts++
			default:
				t.Errorf("unexpected redeem error: %v", err)
			}
		}(int64(i + 1))
	}
	wg.Wait()

	assert.Equal(t, 1, successes, "exactly one redeemer must win")
	assert.Equal(t, workers-1, conflicts)
}

func TestMemoryKeyStore_Get(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	store := NewMemoryKeyStore()
	key, err := store.Generate(ctx, 7, now)
	require.NoError(t, err)

	got, err := store.Get(ctx, key.Key)
	require.NoError(t, err)
	assert.Equal(t, key.Key, got.Key)

	// Mutating the returned copy must not leak into the store.
	got.Used = true
	again, err := store.Get(ctx, key.Key)
	require.NoError(t, err)
	assert.False(t, again.Used)

	_, err = store.Get(ctx, "MISSING")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}
