package session

import "time"

// State represents a conversation FSM state.
type State string

const (
	// StateIdle indicates that the bot is waiting for the next user command.
	StateIdle State = "idle"
	// StateAwaitingDetails indicates that the user chose the redeem intent and
	// the next free-text message carries the request details.
	StateAwaitingDetails State = "awaiting_details"
)

// UserSession captures the current conversation state for a Telegram user.
type UserSession struct {
	UserID       int64          `json:"user_id"`
	CurrentState State          `json:"current_state"`
	Context      map[string]any `json:"context"`
	UpdatedAt    time.Time      `json:"updated_at"`
}
