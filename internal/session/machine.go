package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	userLockKeyPattern = "session:lock:%d"
	lockTTL            = 5 * time.Second
)

var (
	// ErrInvalidTransition indicates that a requested FSM transition is not allowed.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrSessionNotFound indicates that a user session record does not exist.
	ErrSessionNotFound = errors.New("user session not found")
	// ErrSessionLocked indicates that a concurrent operation already holds the lock.
	ErrSessionLocked = errors.New("session is locked, try again later")
)

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe FSM transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}

// Machine describes the operations supported by the conversation FSM.
type Machine interface {
	Get(ctx context.Context, userID int64) (*UserSession, error)
	Set(ctx context.Context, userID int64, state State, contextData map[string]any) error
	TransitionTo(ctx context.Context, userID int64, newState State) error
	Clear(ctx context.Context, userID int64) error
	GetAll(ctx context.Context) ([]*UserSession, error)
}

// machine is a concrete Machine backed by Storage and optional Redis locking.
// With a nil redis client (memory mode) the storage's own locking is relied on.
type machine struct {
	storage     Storage
	log         *slog.Logger
	redisClient *redis.Client
}

// NewMachine creates an FSM controller using the provided storage backend and
// redis client for cross-instance locking.
func NewMachine(storage Storage, log *slog.Logger, redisClient *redis.Client) Machine {
	if log == nil {
		log = slog.Default()
	}

	return &machine{
		storage:     storage,
		log:         log,
		redisClient: redisClient,
	}
}

func (m *machine) Get(ctx context.Context, userID int64) (*UserSession, error) {
	return m.storage.Get(ctx, userID)
}

func (m *machine) GetAll(ctx context.Context) ([]*UserSession, error) {
	return m.storage.GetAll(ctx)
}

// Set composes a UserSession and persists it via storage under the lock.
func (m *machine) Set(ctx context.Context, userID int64, state State, contextData map[string]any) error {
	if err := m.lock(ctx, userID); err != nil {
		return err
	}
	defer m.unlock(ctx, userID)

	return m.save(ctx, userID, state, contextData)
}

// TransitionTo changes the state if the transition is allowed, guarded by the lock.
func (m *machine) TransitionTo(ctx context.Context, userID int64, newState State) error {
	if err := m.lock(ctx, userID); err != nil {
		return err
	}
	defer m.unlock(ctx, userID)

	current := StateIdle

	stored, err := m.storage.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			return err
		}
	} else if stored != nil {
		current = stored.CurrentState
	}

	if !IsTransitionAllowed(current, newState) {
		m.log.Warn("invalid session transition", "user_id", userID, "from", current, "to", newState)
		return ErrInvalidTransition
	}

	transitionRecorder(string(current), string(newState))

	return m.save(ctx, userID, newState, nil)
}

// Clear removes the stored session while holding the lock.
func (m *machine) Clear(ctx context.Context, userID int64) error {
	if err := m.lock(ctx, userID); err != nil {
		return err
	}
	defer m.unlock(ctx, userID)

	return m.storage.Clear(ctx, userID)
}

func (m *machine) save(ctx context.Context, userID int64, state State, contextData map[string]any) error {
	return m.storage.Set(ctx, userID, &UserSession{
		UserID:       userID,
		CurrentState: state,
		Context:      contextData,
	})
}

func (m *machine) lock(ctx context.Context, userID int64) error {
	if m.redisClient == nil {
		return nil
	}

	key := fmt.Sprintf(userLockKeyPattern, userID)
	acquired, err := m.redisClient.SetNX(ctx, key, 1, lockTTL).Result()
	if err != nil {
		m.log.Error("failed to acquire session lock", "user_id", userID, "error", err)
		return err
	}

	if !acquired {
		m.log.Warn("session lock already held", "user_id", userID)
		return ErrSessionLocked
	}

	return nil
}

func (m *machine) unlock(ctx context.Context, userID int64) {
	if m.redisClient == nil {
		return
	}

	key := fmt.Sprintf(userLockKeyPattern, userID)
	if err := m.redisClient.Del(ctx, key).Err(); err != nil {
		m.log.Error("failed to release session lock", "user_id", userID, "error", err)
	}
}
