package consumer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"example.com/workouts/internal/events"
)

// Outcomes of one consumed record.
const (
	outcomeCommitted    = "committed"
	outcomeHandlerError = "handler_error"
	outcomeMalformed    = "malformed"
)

// Results of one audit-log write.
const (
	auditInserted  = "inserted"
	auditDuplicate = "duplicate"
)

var (
	eventsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workouts",
		Subsystem: "consumer",
		Name:      "events_total",
		Help:      "Workout events read from Kafka, labeled by event type and outcome.",
	}, []string{"event_type", "outcome"})

	auditWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workouts",
		Subsystem: "audit",
		Name:      "writes_total",
		Help:      "Audit log inserts; duplicate means the record was already logged.",
	}, []string{"event_type", "result"})

	eventLag = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "workouts",
		Subsystem: "consumer",
		Name:      "event_age_seconds",
		Help:      "Age of the most recently committed event when it was committed.",
	}, []string{"event_type"})
)

func init() {
	prometheus.MustRegister(eventsCounter, auditWrites, eventLag)
}

// eventTypeLabel bounds label cardinality to the published event types.
func eventTypeLabel(eventType string) string {
	switch eventType {
	case events.TypeWorkoutRecorded, events.TypeWorkoutViewed, events.TypeWorkoutsCleared:
		return eventType
	case "":
		return "unknown"
	}
	return "other"
}

func recordOutcome(eventType, outcome string) {
	eventsCounter.WithLabelValues(eventTypeLabel(eventType), outcome).Inc()
}

func recordCommitted(msg Message, now time.Time) {
	recordOutcome(msg.EventType, outcomeCommitted)
	if !msg.Timestamp.IsZero() {
		eventLag.WithLabelValues(eventTypeLabel(msg.EventType)).Set(now.Sub(msg.Timestamp).Seconds())
	}
}

func recordAuditWrite(eventType string, inserted bool) {
	result := auditInserted
	if !inserted {
		result = auditDuplicate
	}
	auditWrites.WithLabelValues(eventTypeLabel(eventType), result).Inc()
}
