package bot

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	telebot "gopkg.in/telebot.v3"

	"github.com/aizen-labs/premium-bot/internal/bot/handlers"
	"github.com/aizen-labs/premium-bot/internal/session"
)

// Dispatcher routes free-text messages to the handler registered for the
// sender's conversation state. Only awaiting_details carries one; idle text
// falls through to the router's default handler.
type Dispatcher struct {
	sessions      session.Machine
	stateHandlers map[session.State]handlers.Handler
	log           *slog.Logger
	mu            sync.RWMutex
}

// NewDispatcher creates a Dispatcher with an empty handler registry.
func NewDispatcher(sessions session.Machine, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}

	return &Dispatcher{
		sessions:      sessions,
		stateHandlers: make(map[session.State]handlers.Handler),
		log:           log,
	}
}

// RegisterStateHandler registers a handler for the provided state.
func (d *Dispatcher) RegisterStateHandler(s session.State, h handlers.Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stateHandlers[s] = h
}

// Dispatch routes the update based on the sender's current state. It reports
// whether a state handler consumed the message.
func (d *Dispatcher) Dispatch(c telebot.Context) (bool, error) {
	if c == nil || c.Sender() == nil {
		d.log.Warn("cannot dispatch without sender information")
		return false, nil
	}

	handler := d.getHandler(d.currentState(context.Background(), c.Sender().ID))
	if handler == nil {
		return false, nil
	}

	return true, handler(c)
}

func (d *Dispatcher) currentState(ctx context.Context, userID int64) session.State {
	stored, err := d.sessions.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, session.ErrSessionNotFound) {
			d.log.Error("failed to load session state", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return session.StateIdle
	}
	if stored == nil {
		return session.StateIdle
	}

	return stored.CurrentState
}

func (d *Dispatcher) getHandler(s session.State) handlers.Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stateHandlers[s]
}
