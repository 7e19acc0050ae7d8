package events

import "github.com/prometheus/client_golang/prometheus"

var (
	publishedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workouts",
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Number of workout events written to Kafka.",
	}, []string{"event_type"})

	failedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workouts",
		Subsystem: "events",
		Name:      "publish_failures_total",
		Help:      "Number of workout events that could not be written to Kafka.",
	}, []string{"event_type"})

	discardedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workouts",
		Subsystem: "events",
		Name:      "discarded_total",
		Help:      "Number of workout events dropped because publishing is disabled.",
	}, []string{"event_type"})
)

func init() {
	prometheus.MustRegister(publishedCounter, failedCounter, discardedCounter)
}

func recordPublished(eventType string) {
	publishedCounter.WithLabelValues(eventType).Inc()
}

func recordPublishFailure(eventType string) {
	failedCounter.WithLabelValues(eventType).Inc()
}

func recordDiscarded(eventType string) {
	discardedCounter.WithLabelValues(eventType).Inc()
}
