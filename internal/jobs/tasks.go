// Package jobs runs the periodic maintenance work: downgrading expired
// premium records and sweeping stale conversation sessions.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TaskTypePremiumSweep = "premium:sweep"
	TaskTypeSessionSweep = "session:sweep"
)

const (
	QueueDefault = "default"
	QueueLow     = "low"
)

// PremiumSweepPayload carries the reference instant for expiry comparison.
type PremiumSweepPayload struct {
	Now time.Time `json:"now"`
}

// SessionSweepPayload bounds how old a session may be before removal.
type SessionSweepPayload struct {
	TTL time.Duration `json:"ttl"`
}

// NewPremiumSweepTask builds the premium downgrade task.
func NewPremiumSweepTask(now time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(PremiumSweepPayload{Now: now})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypePremiumSweep, payload, asynq.Queue(QueueDefault)), nil
}

// NewSessionSweepTask builds the stale session cleanup task.
func NewSessionSweepTask(ttl time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(SessionSweepPayload{TTL: ttl})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeSessionSweep, payload, asynq.Queue(QueueLow)), nil
}
