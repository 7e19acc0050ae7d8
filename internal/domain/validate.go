package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Rule names the validation rule that rejected an input.
type Rule string

const (
	RuleNonFinite   Rule = "non_finite"
	RuleNonPositive Rule = "non_positive"
	RuleUnknownType Rule = "unknown_type"
	RuleOutOfRange  Rule = "out_of_range"
)

// ValidationError is returned when raw input may not be turned into a workout.
type ValidationError struct {
	Rule  Rule
	Field string
}

func (e *ValidationError) Error() string {
	switch e.Rule {
	case RuleNonFinite:
		return fmt.Sprintf("%s must be a number", e.Field)
	case RuleNonPositive:
		return fmt.Sprintf("%s must be a positive number", e.Field)
	case RuleUnknownType:
		return fmt.Sprintf("unknown workout type %q", e.Field)
	case RuleOutOfRange:
		return fmt.Sprintf("%s is out of range", e.Field)
	}
	return fmt.Sprintf("invalid %s", e.Field)
}

const maxCadence = math.MaxInt32

// Input is numeric input that passed Validate. Extra holds cadence for running,
// already rounded to an integer, and elevation gain for cycling.
type Input struct {
	Type     Type
	Distance float64
	Duration float64
	Extra    float64
}

// Validate checks the numeric form input for a workout of type t.
// Finiteness is checked for every field before positivity.
func Validate(t Type, distance, duration, extra float64) (Input, error) {
	if !t.Valid() {
		return Input{}, &ValidationError{Rule: RuleUnknownType, Field: string(t)}
	}

	extraField := extraFieldName(t)
	fields := []struct {
		name  string
		value float64
	}{
		{"distance", distance},
		{"duration", duration},
		{extraField, extra},
	}
	for _, f := range fields {
		if !finite(f.value) {
			return Input{}, &ValidationError{Rule: RuleNonFinite, Field: f.name}
		}
	}

	if distance <= 0 {
		return Input{}, &ValidationError{Rule: RuleNonPositive, Field: "distance"}
	}
	if duration <= 0 {
		return Input{}, &ValidationError{Rule: RuleNonPositive, Field: "duration"}
	}
	switch t {
	case TypeRunning:
		// Cadence is stored as whole steps per minute.
		extra = math.Round(extra)
		if extra <= 0 {
			return Input{}, &ValidationError{Rule: RuleNonPositive, Field: extraField}
		}
		if extra > maxCadence {
			return Input{}, &ValidationError{Rule: RuleOutOfRange, Field: extraField}
		}
	case TypeCycling:
		if extra < 0 {
			return Input{}, &ValidationError{Rule: RuleNonPositive, Field: extraField}
		}
	}

	return Input{Type: t, Distance: distance, Duration: duration, Extra: extra}, nil
}

// ValidateCoords checks that c is a finite point on the globe.
func ValidateCoords(c Coords) error {
	if !finite(c.Lat) {
		return &ValidationError{Rule: RuleNonFinite, Field: "lat"}
	}
	if !finite(c.Lng) {
		return &ValidationError{Rule: RuleNonFinite, Field: "lng"}
	}
	if math.Abs(c.Lat) > 90 {
		return &ValidationError{Rule: RuleOutOfRange, Field: "lat"}
	}
	if math.Abs(c.Lng) > 180 {
		return &ValidationError{Rule: RuleOutOfRange, Field: "lng"}
	}
	return nil
}

// RawInput is the form as typed by the user.
type RawInput struct {
	Type          string
	Distance      string
	Duration      string
	Cadence       string
	ElevationGain string
}

// ParseInput converts raw form strings and validates them. A blank field reads as
// zero and anything that is not a decimal number reads as NaN.
func ParseInput(raw RawInput) (Input, error) {
	t := Type(strings.ToLower(strings.TrimSpace(raw.Type)))
	extra := raw.Cadence
	if t == TypeCycling {
		extra = raw.ElevationGain
	}
	return Validate(t, parseNumber(raw.Distance), parseNumber(raw.Duration), parseNumber(extra))
}

func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func extraFieldName(t Type) string {
	if t == TypeCycling {
		return "elevation_gain"
	}
	return "cadence"
}
