package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	workoutCountGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "workouts",
		Subsystem: "store",
		Name:      "workouts",
		Help:      "Number of workouts currently held in the session store.",
	})
	lastPersistedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "workouts",
		Subsystem: "persistence",
		Name:      "last_saved_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful save of the workouts slot.",
	})
	storageFailureCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workouts",
		Subsystem: "persistence",
		Name:      "storage_failures_total",
		Help:      "Number of storage operations that failed, labeled by operation.",
	}, []string{"op"})
	corruptLoadCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "workouts",
		Subsystem: "persistence",
		Name:      "corrupt_loads_total",
		Help:      "Number of loads that found an unparseable slot and fell back to an empty list.",
	})
)

func init() {
	prometheus.MustRegister(workoutCountGauge, lastPersistedGauge, storageFailureCounter, corruptLoadCounter)
}

// RecordWorkoutCount updates the store size gauge.
func RecordWorkoutCount(n int) {
	workoutCountGauge.Set(float64(n))
}

// RecordSaved updates the persistence watermark gauge.
func RecordSaved(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastPersistedGauge.Set(float64(ts.Unix()))
}

// RecordStorageFailure counts a failed save, load or clear.
func RecordStorageFailure(op string) {
	storageFailureCounter.WithLabelValues(op).Inc()
}

// RecordCorruptLoad counts a load that had to be discarded.
func RecordCorruptLoad() {
	corruptLoadCounter.Inc()
}
