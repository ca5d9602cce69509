package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	activeSessions    prometheus.Gauge
	boundConnections  prometheus.Gauge
	sessionsCreated   prometheus.Counter
	sessionsReaped    prometheus.Counter
	reapsCancelled    prometheus.Counter
	broadcasts        prometheus.Counter
	droppedSends      prometheus.Counter
	malformedMessages prometheus.Counter
	ticks             prometheus.Counter
	controlMessages   *prometheus.CounterVec
}

// NewMetrics registers the engine collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	const ns = "bananadoro"

	return &Metrics{
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "active_sessions",
			Help:      "Number of sessions currently in the registry",
		}),
		boundConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "bound_connections",
			Help:      "Number of connections that are members of a session",
		}),
		sessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "sessions_created_total",
			Help:      "Total number of sessions created",
		}),
		sessionsReaped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "sessions_reaped_total",
			Help:      "Total number of empty sessions removed after the grace period",
		}),
		reapsCancelled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "reaps_cancelled_total",
			Help:      "Total number of pending removals cancelled by a rejoin",
		}),
		broadcasts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "broadcasts_total",
			Help:      "Total number of session state broadcasts",
		}),
		droppedSends: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "dropped_sends_total",
			Help:      "Total number of messages a connection refused to queue",
		}),
		malformedMessages: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "malformed_messages_total",
			Help:      "Total number of inbound messages dropped as malformed",
		}),
		ticks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "scheduler_ticks_total",
			Help:      "Total number of scheduler ticks",
		}),
		controlMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "messages_total",
			Help:      "Total number of inbound messages handled, by type",
		}, []string{"type"}),
	}
}
