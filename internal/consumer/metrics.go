package consumer

import "github.com/prometheus/client_golang/prometheus"

var (
	processedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workouts",
		Subsystem: "feed",
		Name:      "messages_processed_total",
		Help:      "Number of change messages applied to the rendered list.",
	}, []string{"topic", "reason"})

	handlerErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workouts",
		Subsystem: "feed",
		Name:      "handler_errors_total",
		Help:      "Number of change messages the handler refused.",
	}, []string{"topic", "reason"})

	decodeErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workouts",
		Subsystem: "feed",
		Name:      "decode_errors_total",
		Help:      "Number of undecodable change messages per topic.",
	}, []string{"topic"})

	fetchErrorCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "workouts",
		Subsystem: "feed",
		Name:      "fetch_errors_total",
		Help:      "Number of failed fetches from the change feed.",
	})

	renderedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "workouts",
		Subsystem: "feed",
		Name:      "rendered_workouts",
		Help:      "Number of workouts in the most recently rendered list.",
	})
)

func init() {
	prometheus.MustRegister(processedCounter, handlerErrorCounter, decodeErrorCounter, fetchErrorCounter, renderedGauge)
}

func recordProcessed(msg Message) {
	processedCounter.WithLabelValues(msg.Topic, string(msg.Reason)).Inc()
}

func recordHandlerError(msg Message) {
	handlerErrorCounter.WithLabelValues(msg.Topic, string(msg.Reason)).Inc()
}

func recordDecodeError(topic string) {
	decodeErrorCounter.WithLabelValues(topic).Inc()
}

func recordFetchError() {
	fetchErrorCounter.Inc()
}
