// Package metrics exposes Prometheus instrumentation for the entitlement engine.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aizen-labs/premium-bot/internal/session"
)

var (
	botUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Total number of bot updates handled labeled by action and status",
		},
		[]string{"action", "status"},
	)
	updateDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bot_update_duration_seconds",
			Help:    "Duration of update handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)
	redeemRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redeem_requests_submitted_total",
			Help: "Total number of redeem requests accepted into the ledger",
		},
	)
	redeemResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redeem_resolutions_total",
			Help: "Total number of redeem request resolutions by decision",
		},
		[]string{"decision"},
	)
	premiumKeysGeneratedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "premium_keys_generated_total",
			Help: "Total number of premium keys issued by admins",
		},
	)
	premiumKeyRedemptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "premium_key_redemptions_total",
			Help: "Total number of premium key redemption attempts by outcome",
		},
		[]string{"outcome"},
	)
	broadcastDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_deliveries_total",
			Help: "Total number of broadcast message deliveries by result",
		},
		[]string{"result"},
	)
	banActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ban_actions_total",
			Help: "Total number of ban and unban operations",
		},
		[]string{"action"},
	)
	sessionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_transitions_total",
			Help: "Total number of conversation state transitions",
		},
		[]string{"from", "to"},
	)
	sessionsByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sessions_by_state",
			Help: "Number of live conversation sessions per state",
		},
		[]string{"state"},
	)
)

var trackedStates = []session.State{
	session.StateIdle,
	session.StateAwaitingDetails,
}

func init() {
	session.RegisterTransitionRecorder(RecordSessionTransition)
}

// RecordUpdate increments the update counter and records handling duration.
func RecordUpdate(action, status string, duration time.Duration) {
	if action == "" {
		action = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	botUpdatesTotal.WithLabelValues(action, status).Inc()
	updateDurationSeconds.WithLabelValues(action).Observe(duration.Seconds())
}

// RecordRequestSubmitted counts a redeem request accepted into the ledger.
func RecordRequestSubmitted() {
	redeemRequestsTotal.Inc()
}

// RecordResolution counts an approve or reject decision.
func RecordResolution(decision string) {
	if decision == "" {
		decision = "unknown"
	}

	redeemResolutionsTotal.WithLabelValues(decision).Inc()
}

// RecordKeyGenerated counts an issued premium key.
func RecordKeyGenerated() {
	premiumKeysGeneratedTotal.Inc()
}

// RecordKeyRedemption counts a key redemption attempt by outcome.
func RecordKeyRedemption(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}

	premiumKeyRedemptionsTotal.WithLabelValues(outcome).Inc()
}

// RecordBroadcastDelivery counts a single broadcast delivery attempt.
func RecordBroadcastDelivery(ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}

	broadcastDeliveriesTotal.WithLabelValues(result).Inc()
}

// RecordBanAction counts a ban or unban operation.
func RecordBanAction(action string) {
	banActionsTotal.WithLabelValues(action).Inc()
}

// RecordSessionTransition tracks conversation FSM transitions.
func RecordSessionTransition(from, to string) {
	if from == "" {
		from = "unknown"
	}
	if to == "" {
		to = "unknown"
	}

	sessionTransitionsTotal.WithLabelValues(from, to).Inc()
}

// SessionCollector periodically gathers session state counts into gauges.
type SessionCollector struct {
	machine  session.Machine
	interval time.Duration
}

// NewSessionCollector builds a collector bound to the provided session machine.
func NewSessionCollector(machine session.Machine, interval time.Duration) *SessionCollector {
	if interval <= 0 {
		interval = 10 * time.Second
	}

	return &SessionCollector{machine: machine, interval: interval}
}

// Run polls the session machine until ctx is cancelled.
func (c *SessionCollector) Run(ctx context.Context) {
	if c == nil || c.machine == nil {
		return
	}

	for {
		_ = c.collect(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.interval):
		}
	}
}

func (c *SessionCollector) collect(ctx context.Context) error {
	sessions, err := c.machine.GetAll(ctx)
	if err != nil {
		return err
	}

	counts := make(map[string]int, len(sessions))
	for _, s := range sessions {
		label := "unknown"
		if s != nil && s.CurrentState != "" {
			label = string(s.CurrentState)
		}
		counts[label]++
	}

	sessionsByState.Reset()

	for _, tracked := range trackedStates {
		label := string(tracked)
		sessionsByState.WithLabelValues(label).Set(float64(counts[label]))
		delete(counts, label)
	}

	for label, count := range counts {
		sessionsByState.WithLabelValues(label).Set(float64(count))
	}

	return nil
}
