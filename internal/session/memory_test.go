package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage_SetAndGet(t *testing.T) {
	storage := NewMemoryStorage()
	ctx := context.Background()

	err := storage.Set(ctx, 1, &UserSession{CurrentState: StateAwaitingDetails})
	require.NoError(t, err)

	sess, err := storage.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sess.UserID)
	assert.Equal(t, StateAwaitingDetails, sess.CurrentState)
	assert.False(t, sess.UpdatedAt.IsZero())
}

func TestMemoryStorage_GetNotFound(t *testing.T) {
	storage := NewMemoryStorage()

	sess, err := storage.Get(context.Background(), 404)
	assert.Nil(t, sess)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStorage_Clear(t *testing.T) {
	storage := NewMemoryStorage()
	ctx := context.Background()

	require.NoError(t, storage.Set(ctx, 2, &UserSession{CurrentState: StateAwaitingDetails}))
	require.NoError(t, storage.Clear(ctx, 2))

	_, err := storage.Get(ctx, 2)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Clearing an absent session is not an error.
	assert.NoError(t, storage.Clear(ctx, 2))
}

func TestMemoryStorage_GetReturnsCopy(t *testing.T) {
	storage := NewMemoryStorage()
	ctx := context.Background()

	require.NoError(t, storage.Set(ctx, 3, &UserSession{CurrentState: StateAwaitingDetails}))

	first, err := storage.Get(ctx, 3)
	require.NoError(t, err)
	first.CurrentState = StateIdle

	second, err := storage.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingDetails, second.CurrentState)
}

func TestMemoryStorage_GetAll(t *testing.T) {
	storage := NewMemoryStorage()
	ctx := context.Background()

	for _, id := range []int64{10, 20, 30} {
		require.NoError(t, storage.Set(ctx, id, &UserSession{CurrentState: StateIdle}))
	}

	sessions, err := storage.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 3)
}
