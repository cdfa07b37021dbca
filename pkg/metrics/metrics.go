package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for leaderwatch.
// Using promauto for automatic registration with default registry.
var (
	// LeaderPresent is 1 while a leader address is published, 0 otherwise.
	LeaderPresent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "leaderwatch",
			Subsystem: "cluster",
			Name:      "leader_present",
			Help:      "Whether a leader address is currently published",
		},
	)

	// LeaderChanges counts observed leader transitions by kind.
	LeaderChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "leaderwatch",
			Subsystem: "cluster",
			Name:      "leader_changes_total",
			Help:      "Total observed leader transitions by kind",
		},
		[]string{"kind"}, // created, updated, deleted
	)

	// WatchErrors counts transient watch failures per backend.
	WatchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "leaderwatch",
			Subsystem: "tracker",
			Name:      "watch_errors_total",
			Help:      "Total transient watch errors by backend",
		},
		[]string{"backend"},
	)

	// SessionEvents counts coordination-service session state changes.
	SessionEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "leaderwatch",
			Subsystem: "tracker",
			Name:      "session_events_total",
			Help:      "Total coordination-service session state transitions",
		},
		[]string{"backend", "state"},
	)

	// WaitDuration tracks how long blocking address lookups take.
	WaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "leaderwatch",
			Subsystem: "cluster",
			Name:      "wait_duration_seconds",
			Help:      "Duration of blocking leader address lookups",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4.5m
		},
	)
)

// RecordValue records a value observation for the tracked path, updating the
// presence gauge and the transition counter.
func RecordValue(wasPresent bool) {
	LeaderPresent.Set(1)
	if wasPresent {
		LeaderChanges.WithLabelValues("updated").Inc()
	} else {
		LeaderChanges.WithLabelValues("created").Inc()
	}
}

// RecordDeletion records the tracked path disappearing.
func RecordDeletion() {
	LeaderPresent.Set(0)
	LeaderChanges.WithLabelValues("deleted").Inc()
}

// RecordWatchError records a transient watch failure for a backend.
func RecordWatchError(backend string) {
	WatchErrors.WithLabelValues(backend).Inc()
}

// RecordSessionEvent records a session state transition for a backend.
func RecordSessionEvent(backend, state string) {
	SessionEvents.WithLabelValues(backend, state).Inc()
}
