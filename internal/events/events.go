// Package events publishes workout lifecycle events to Kafka.
package events

import (
	"context"
	"time"

	"example.com/workouts/internal/domain"
)

// Event types, carried in the event_type header.
const (
	TypeWorkoutRecorded = "workout.recorded"
	TypeWorkoutViewed   = "workout.viewed"
	TypeWorkoutsCleared = "workouts.cleared"
)

// KeyAll is the message key for events that concern every workout.
const KeyAll = "all"

// WorkoutRecorded is emitted when a validated workout is added to the store.
type WorkoutRecorded struct {
	WorkoutID   string    `json:"workout_id"`
	Type        string    `json:"type"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	Distance    float64   `json:"distance_km"`
	Duration    float64   `json:"duration_min"`
	Metric      string    `json:"metric"`
	MetricValue float64   `json:"metric_value"`
	MetricUnit  string    `json:"metric_unit"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// WorkoutViewed is emitted when a workout is selected from the list.
type WorkoutViewed struct {
	WorkoutID string    `json:"workout_id"`
	Clicks    int       `json:"clicks"`
	ViewedAt  time.Time `json:"viewed_at"`
}

// WorkoutsCleared is emitted on reset.
type WorkoutsCleared struct {
	Count     int       `json:"count"`
	ClearedAt time.Time `json:"cleared_at"`
}

// Event is a payload together with its routing metadata.
type Event struct {
	Type    string
	Key     string
	Payload any
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Recorded builds the event for a newly added workout.
func Recorded(w domain.Workout) Event {
	m := w.Metric()
	return Event{
		Type: TypeWorkoutRecorded,
		Key:  w.ID().String(),
		Payload: WorkoutRecorded{
			WorkoutID:   w.ID().String(),
			Type:        string(w.Type()),
			Lat:         w.Coords().Lat,
			Lng:         w.Coords().Lng,
			Distance:    w.Distance(),
			Duration:    w.Duration(),
			Metric:      m.Name,
			MetricValue: m.Value,
			MetricUnit:  m.Unit,
			RecordedAt:  w.Date(),
		},
	}
}

// Viewed builds the event for a list selection.
func Viewed(w domain.Workout, at time.Time) Event {
	return Event{
		Type: TypeWorkoutViewed,
		Key:  w.ID().String(),
		Payload: WorkoutViewed{
			WorkoutID: w.ID().String(),
			Clicks:    w.Clicks(),
			ViewedAt:  at,
		},
	}
}

// Cleared builds the event for a reset that dropped count workouts.
func Cleared(count int, at time.Time) Event {
	return Event{
		Type:    TypeWorkoutsCleared,
		Key:     KeyAll,
		Payload: WorkoutsCleared{Count: count, ClearedAt: at},
	}
}
