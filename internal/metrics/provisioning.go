// Package metrics holds the Prometheus collectors shared by the worker and
// the event API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every collector registered by this module.
const Namespace = "rightclaw"

var (
	// ProbeAttempts counts individual TCP connection attempts.
	ProbeAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "probe_attempts_total",
		Help:      "Reachability probe connection attempts by result",
	}, []string{"result"})

	// ProbeWaits counts finished waits by outcome (ready, timeout).
	ProbeWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "probe_waits_total",
		Help:      "Reachability waits by outcome",
	}, []string{"outcome"})

	// ProbeWaitSeconds observes how long instances take to become reachable.
	ProbeWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "probe_wait_seconds",
		Help:      "Time until an instance accepted SSH connections",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 180, 240, 300, 600},
	})

	// RemoteExecutions counts remote commands by auth mode and outcome
	// (ok, nonzero, transport_error).
	RemoteExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "remote_executions_total",
		Help:      "Remote commands by auth method and outcome",
	}, []string{"auth", "outcome"})

	// LifecycleCommands counts suspend and unsuspend gateway commands by
	// event kind and outcome (command_sent, command_failed).
	LifecycleCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "lifecycle_commands_total",
		Help:      "Gateway stop/start commands by event kind and outcome",
	}, []string{"kind", "outcome"})

	// EventsReceived counts billing events accepted by the event API.
	EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "events_received_total",
		Help:      "Billing lifecycle events by kind and disposition",
	}, []string{"kind", "disposition"})

	// ActivityDuration observes every activity execution by type and result
	// (ok, error).
	ActivityDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "activity_duration_seconds",
		Help:      "Activity execution time by activity type and result",
		Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 180, 600},
	}, []string{"activity", "result"})
)
