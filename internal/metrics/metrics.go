// Package metrics defines the Prometheus instruments for the client core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session Metrics
var (
	// SessionExpiriesTotal counts forced logouts caused by an expired session
	SessionExpiriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_expiries_total",
			Help: "Total forced logouts caused by session expiry",
		},
	)

	// LoginAttemptsTotal counts login attempts by outcome
	LoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_attempts_total",
			Help: "Total login attempts by outcome (success/rejected/error)",
		},
		[]string{"outcome"},
	)
)

// Push Channel Metrics
var (
	// ChannelConnectsTotal counts websocket connection attempts by outcome
	ChannelConnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_channel_connects_total",
			Help: "Total push channel connection attempts by outcome (connected/failed)",
		},
		[]string{"outcome"},
	)

	// ChannelReconnectsTotal counts automatic reconnect cycles
	ChannelReconnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "push_channel_reconnects_total",
			Help: "Total automatic push channel reconnects",
		},
	)

	// ChannelEventsTotal counts notification events received on the push channel
	ChannelEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "push_channel_events_total",
			Help: "Total notification events received on the push channel",
		},
	)

	// BalanceMergesTotal counts live balance updates applied from pushed events
	BalanceMergesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "balance_merges_total",
			Help: "Total live balance updates applied from pushed events",
		},
	)

	// AlertFailuresTotal counts suppressed audio alert failures
	AlertFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alert_failures_total",
			Help: "Total suppressed audible alert failures",
		},
	)
)

// Transfer Metrics
var (
	// TransfersTotal counts transfer submissions by outcome
	TransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transfers_total",
			Help: "Total transfer submissions by outcome (completed/rejected/error)",
		},
		[]string{"outcome"},
	)

	// ChallengeMismatchesTotal counts blocked submissions due to challenge mismatch
	ChallengeMismatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "challenge_mismatches_total",
			Help: "Total submissions blocked by a challenge code mismatch",
		},
	)

	// QRDecodesTotal counts QR decode attempts by outcome
	QRDecodesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qr_decodes_total",
			Help: "Total QR decode attempts by outcome (ok/timeout/cancelled/malformed/wrong_issuer/missing_field/error)",
		},
		[]string{"outcome"},
	)
)

// Backend Metrics
var (
	// BackendCallsTotal counts backend API calls by operation and status
	BackendCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_calls_total",
			Help: "Total backend API calls by operation and status",
		},
		[]string{"operation", "status"},
	)

	// BackendCircuitState tracks the API circuit breaker state (0=closed, 1=half-open, 2=open)
	BackendCircuitState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backend_circuit_state",
			Help: "Current backend circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)
