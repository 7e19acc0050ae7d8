// Package domain defines workout records, their derived metrics and the in-memory store.
package domain

import (
	"fmt"
	"math"
	"time"

	"k8s.io/utils/clock"
)

// Type discriminates workout variants.
type Type string

const (
	TypeRunning Type = "running"
	TypeCycling Type = "cycling"
)

// Valid reports whether t names a known variant.
func (t Type) Valid() bool {
	switch t {
	case TypeRunning, TypeCycling:
		return true
	}
	return false
}

// Label is the capitalised display name of the variant.
func (t Type) Label() string {
	switch t {
	case TypeRunning:
		return "Running"
	case TypeCycling:
		return "Cycling"
	}
	return string(t)
}

// Emoji is the icon shown next to the variant on the map and in the list.
func (t Type) Emoji() string {
	switch t {
	case TypeRunning:
		return "🏃‍♂️"
	case TypeCycling:
		return "🚴‍♀️"
	}
	return ""
}

// Coords is a latitude/longitude pair.
type Coords struct {
	Lat float64
	Lng float64
}

// Metric is a derived value together with how it is displayed.
type Metric struct {
	Name  string
	Value float64
	Unit  string
}

// Workout is implemented by *Running and *Cycling only.
type Workout interface {
	ID() ID
	Date() time.Time
	Coords() Coords
	Distance() float64
	Duration() float64
	Type() Type
	Clicks() int
	RecordView()

	// Metric returns the variant's derived metric.
	Metric() Metric
	// Detail returns the variant-specific input field.
	Detail() Metric
	// Describe returns the list title, e.g. "Running on October 19".
	Describe() string
	// Popup returns the map popup content.
	Popup() string

	variant()
}

// Record holds the fields shared by every variant. Only clicks changes after construction.
type Record struct {
	id       ID
	date     time.Time
	coords   Coords
	distance float64
	duration float64
	typ      Type
	clicks   int
}

func (r *Record) ID() ID            { return r.id }
func (r *Record) Date() time.Time   { return r.date }
func (r *Record) Coords() Coords    { return r.coords }
func (r *Record) Distance() float64 { return r.distance }
func (r *Record) Duration() float64 { return r.duration }
func (r *Record) Type() Type        { return r.typ }
func (r *Record) Clicks() int       { return r.clicks }

// RecordView counts one selection of the workout.
func (r *Record) RecordView() {
	r.clicks++
}

// Describe implements Workout.
func (r *Record) Describe() string {
	return fmt.Sprintf("%s on %s %d", r.typ.Label(), r.date.Month(), r.date.Day())
}

// Popup implements Workout.
func (r *Record) Popup() string {
	return r.typ.Emoji() + " " + r.Describe()
}

// Running is a workout measured by pace.
type Running struct {
	Record
	cadence int
	pace    float64
}

// Cadence is in steps per minute.
func (w *Running) Cadence() int { return w.cadence }

// Pace is in minutes per kilometre.
func (w *Running) Pace() float64 { return w.pace }

// Metric implements Workout.
func (w *Running) Metric() Metric {
	return Metric{Name: "pace", Value: w.pace, Unit: "min/km"}
}

// Detail implements Workout.
func (w *Running) Detail() Metric {
	return Metric{Name: "cadence", Value: float64(w.cadence), Unit: "spm"}
}

func (w *Running) variant() {}

func (w *Running) calcPace() {
	if degenerate(w.distance, w.duration) {
		w.pace = 0
		return
	}
	w.pace = Pace(w.distance, w.duration)
}

// Cycling is a workout measured by speed.
type Cycling struct {
	Record
	elevationGain float64
	speed         float64
}

// ElevationGain is in metres.
func (w *Cycling) ElevationGain() float64 { return w.elevationGain }

// Speed is in kilometres per hour.
func (w *Cycling) Speed() float64 { return w.speed }

// Metric implements Workout.
func (w *Cycling) Metric() Metric {
	return Metric{Name: "speed", Value: w.speed, Unit: "km/h"}
}

// Detail implements Workout.
func (w *Cycling) Detail() Metric {
	return Metric{Name: "elevation_gain", Value: w.elevationGain, Unit: "m"}
}

func (w *Cycling) variant() {}

func (w *Cycling) calcSpeed() {
	if degenerate(w.distance, w.duration) {
		w.speed = 0
		return
	}
	w.speed = Speed(w.distance, w.duration)
}

// Factory builds workouts, assigning identifiers and creation timestamps.
type Factory struct {
	ids   IDGenerator
	clock clock.PassiveClock
}

// NewFactory constructs a Factory. Nil arguments fall back to UUIDs and the wall clock.
func NewFactory(ids IDGenerator, clk clock.PassiveClock) *Factory {
	if ids == nil {
		ids = UUIDGenerator{}
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Factory{ids: ids, clock: clk}
}

var defaultFactory = NewFactory(nil, nil)

// NewRunning builds a running workout with a fresh UUID and the current time.
func NewRunning(coords Coords, distance, duration float64, cadence int) *Running {
	return defaultFactory.NewRunning(coords, distance, duration, cadence)
}

// NewCycling builds a cycling workout with a fresh UUID and the current time.
func NewCycling(coords Coords, distance, duration, elevationGain float64) *Cycling {
	return defaultFactory.NewCycling(coords, distance, duration, elevationGain)
}

// NewRunning builds a running workout. Input is expected to have passed Validate.
func (f *Factory) NewRunning(coords Coords, distance, duration float64, cadence int) *Running {
	w := &Running{Record: f.record(coords, distance, duration, TypeRunning), cadence: cadence}
	w.calcPace()
	return w
}

// NewCycling builds a cycling workout. Input is expected to have passed Validate.
func (f *Factory) NewCycling(coords Coords, distance, duration, elevationGain float64) *Cycling {
	w := &Cycling{Record: f.record(coords, distance, duration, TypeCycling), elevationGain: elevationGain}
	w.calcSpeed()
	return w
}

// Build dispatches validated input to the matching variant constructor.
func (f *Factory) Build(coords Coords, in Input) (Workout, error) {
	switch in.Type {
	case TypeRunning:
		return f.NewRunning(coords, in.Distance, in.Duration, int(math.Round(in.Extra))), nil
	case TypeCycling:
		return f.NewCycling(coords, in.Distance, in.Duration, in.Extra), nil
	}
	return nil, &UnknownVariantError{Type: string(in.Type), Index: -1}
}

func (f *Factory) record(coords Coords, distance, duration float64, typ Type) Record {
	return Record{
		id:       f.ids.Next(),
		date:     f.clock.Now(),
		coords:   coords,
		distance: distance,
		duration: duration,
		typ:      typ,
	}
}

// restore overrides the identity fields of a freshly built workout with persisted values.
func restore(w Workout, id ID, date time.Time, clicks int) {
	var r *Record
	switch v := w.(type) {
	case *Running:
		r = &v.Record
	case *Cycling:
		r = &v.Record
	default:
		return
	}
	r.id = id
	r.date = date
	r.clicks = clicks
}
