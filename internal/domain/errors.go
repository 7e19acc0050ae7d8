package domain

import (
	"fmt"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

var (
	// ErrWorkoutNotFound is returned when no workout in the store has the requested id.
	ErrWorkoutNotFound = errors.New("workout not found", j.C("ERR_3f1c9a7be2d04c55"))
	// ErrMalformedBlob is reported when the persisted blob is not a JSON array.
	ErrMalformedBlob = errors.New("persisted workouts are malformed", j.C("ERR_8b0e6d21c4a7f913"))
)

// UnknownVariantError reports a persisted record whose type discriminator is not known.
type UnknownVariantError struct {
	Type  string
	Index int
}

func (e *UnknownVariantError) Error() string {
	return fmt.Sprintf("unknown workout type %q at index %d", e.Type, e.Index)
}

// InvalidRecordError reports a persisted record that cannot be rebuilt into a valid workout.
type InvalidRecordError struct {
	Index  int
	Reason string
	Err    error
}

func (e *InvalidRecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid workout at index %d: %s: %v", e.Index, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid workout at index %d: %s", e.Index, e.Reason)
}

func (e *InvalidRecordError) Unwrap() error { return e.Err }
