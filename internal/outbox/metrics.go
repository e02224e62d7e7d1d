package outbox

import "github.com/prometheus/client_golang/prometheus"

var (
	publishedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workouts",
		Subsystem: "outbox",
		Name:      "events_published_total",
		Help:      "Number of workout change events written to Kafka, labeled by reason.",
	}, []string{"reason"})

	publishFailedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workouts",
		Subsystem: "outbox",
		Name:      "events_failed_total",
		Help:      "Number of workout change events that could not be written, labeled by reason.",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(publishedCounter, publishFailedCounter)
}
