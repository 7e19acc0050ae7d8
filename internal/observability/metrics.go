// Package observability holds the Prometheus collectors shared by the workout packages.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	workoutsRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workouts",
		Subsystem: "store",
		Name:      "recorded_total",
		Help:      "Number of workouts added to the store, labeled by type.",
	}, []string{"type"})

	workoutViews = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "workouts",
		Subsystem: "store",
		Name:      "views_total",
		Help:      "Number of times a workout was selected from the list.",
	})

	storeSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "workouts",
		Subsystem: "store",
		Name:      "size",
		Help:      "Number of workouts currently held in memory.",
	})

	persistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "workouts",
		Subsystem: "persistence",
		Name:      "last_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful blob write.",
	})

	reconstitutionSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workouts",
		Subsystem: "persistence",
		Name:      "reconstitution_skipped_total",
		Help:      "Persisted records dropped during load, labeled by reason.",
	}, []string{"reason"})

	persistenceErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workouts",
		Subsystem: "persistence",
		Name:      "errors_total",
		Help:      "Blob store failures, labeled by operation.",
	}, []string{"op"})
)

func init() {
	prometheus.MustRegister(workoutsRecorded, workoutViews, storeSize, persistGauge, reconstitutionSkipped, persistenceErrors)
}

// RecordWorkoutAdded counts a new workout of the given type.
func RecordWorkoutAdded(workoutType string) {
	workoutsRecorded.WithLabelValues(workoutType).Inc()
}

// RecordWorkoutViewed counts a list selection.
func RecordWorkoutViewed() {
	workoutViews.Inc()
}

// SetStoreSize reports the in-memory workout count.
func SetStoreSize(n int) {
	storeSize.Set(float64(n))
}

// RecordPersisted updates the persistence watermark gauge.
func RecordPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	persistGauge.Set(float64(ts.Unix()))
}

// RecordReconstitutionSkipped counts a persisted record dropped during load.
func RecordReconstitutionSkipped(reason string) {
	reconstitutionSkipped.WithLabelValues(reason).Inc()
}

// RecordPersistenceError counts a failed blob store operation.
func RecordPersistenceError(op string) {
	persistenceErrors.WithLabelValues(op).Inc()
}
