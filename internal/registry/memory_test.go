package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRegistry_GetOrCreate(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	user, err := reg.GetOrCreate(ctx, 100, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(100), user.TelegramID)
	assert.Equal(t, "alice", user.Username)
	assert.False(t, user.IsPremium)
	assert.Nil(t, user.PremiumUntil)
	assert.False(t, user.RedeemUsed)
	assert.False(t, user.Banned)
	assert.False(t, user.CreatedAt.IsZero())

	// Second call returns the existing record unchanged.
	again, err := reg.GetOrCreate(ctx, 100, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.CreatedAt, again.CreatedAt)
}

func TestMemoryRegistry_GetOrCreateRefreshesUsername(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	_, err := reg.GetOrCreate(ctx, 100, "alice")
	require.NoError(t, err)

	renamed, err := reg.GetOrCreate(ctx, 100, "alice_renamed")
	require.NoError(t, err)
	assert.Equal(t, "alice_renamed", renamed.Username)

	// An empty username on a later update keeps the stored one.
	kept, err := reg.GetOrCreate(ctx, 100, "")
	require.NoError(t, err)
	assert.Equal(t, "alice_renamed", kept.Username)
}

func TestMemoryRegistry_GetUnknownUser(t *testing.T) {
	reg := NewMemoryRegistry()

	user, err := reg.Get(context.Background(), 404)
	assert.Nil(t, user)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMemoryRegistry_GetReturnsCopy(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	_, err := reg.GetOrCreate(ctx, 100, "alice")
	require.NoError(t, err)

	first, err := reg.Get(ctx, 100)
	require.NoError(t, err)
	first.Banned = true

	second, err := reg.Get(ctx, 100)
	require.NoError(t, err)
	assert.False(t, second.Banned)
}

func TestMemoryRegistry_SetBanned(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	assert.ErrorIs(t, reg.SetBanned(ctx, 404, true), ErrUserNotFound)

	_, err := reg.GetOrCreate(ctx, 100, "alice")
	require.NoError(t, err)

	require.NoError(t, reg.SetBanned(ctx, 100, true))
	user, err := reg.Get(ctx, 100)
	require.NoError(t, err)
	assert.True(t, user.Banned)

	require.NoError(t, reg.SetBanned(ctx, 100, false))
	user, err = reg.Get(ctx, 100)
	require.NoError(t, err)
	assert.False(t, user.Banned)
}

func TestMemoryRegistry_MarkRedeemUsed(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	_, err := reg.MarkRedeemUsed(ctx, 404)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = reg.GetOrCreate(ctx, 100, "alice")
	require.NoError(t, err)

	consumed, err := reg.MarkRedeemUsed(ctx, 100)
	require.NoError(t, err)
	assert.True(t, consumed)

	// A second claim finds the quota already spent.
	consumed, err = reg.MarkRedeemUsed(ctx, 100)
	require.NoError(t, err)
	assert.False(t, consumed)

	user, err := reg.Get(ctx, 100)
	require.NoError(t, err)
	assert.True(t, user.RedeemUsed)
}

func TestMemoryRegistry_MarkRedeemUsedSingleClaim(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	_, err := reg.GetOrCreate(ctx, 100, "alice")
	require.NoError(t, err)

	var claims atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			consumed, err := reg.MarkRedeemUsed(ctx, 100)
			assert.NoError(t, err)
			if consumed {
				claims.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), claims.Load())
}

func TestMemoryRegistry_GrantPremium(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()
	until := time.Now().Add(30 * 24 * time.Hour)

	assert.ErrorIs(t, reg.GrantPremium(ctx, 404, until), ErrUserNotFound)

	_, err := reg.GetOrCreate(ctx, 100, "alice")
	require.NoError(t, err)

	require.NoError(t, reg.GrantPremium(ctx, 100, until))

	user, err := reg.Get(ctx, 100)
	require.NoError(t, err)
	assert.True(t, user.IsPremium)
	require.NotNil(t, user.PremiumUntil)
	assert.True(t, user.PremiumUntil.Equal(until))
	assert.True(t, user.PremiumActive(time.Now()))
}

func TestMemoryRegistry_RevokeExpired(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()
	now := time.Now()

	for id, until := range map[int64]time.Time{
		1: now.Add(-time.Hour),
		2: now.Add(-time.Minute),
		3: now.Add(time.Hour),
	} {
		_, err := reg.GetOrCreate(ctx, id, "")
		require.NoError(t, err)
		require.NoError(t, reg.GrantPremium(ctx, id, until))
	}

	downgraded, err := reg.RevokeExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), downgraded)

	expired, err := reg.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, expired.IsPremium)

	active, err := reg.Get(ctx, 3)
	require.NoError(t, err)
	assert.True(t, active.IsPremium)

	// A second sweep finds nothing left to downgrade.
	downgraded, err = reg.RevokeExpired(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, downgraded)
}

func TestMemoryRegistry_AllIDs(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	ids, err := reg.AllIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	for _, id := range []int64{5, 6, 7} {
		_, err := reg.GetOrCreate(ctx, id, "")
		require.NoError(t, err)
	}

	ids, err = reg.AllIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{5, 6, 7}, ids)
}
