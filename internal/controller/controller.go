// Package controller wires the workout store to its map, location and event collaborators
// and exposes the user commands: submit, select and reset.
package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	jerrors "github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
	"k8s.io/utils/clock"

	"example.com/workouts/internal/domain"
	"example.com/workouts/internal/events"
	"example.com/workouts/internal/mapview"
)

// Zoom levels used when the map is first shown and when a workout is selected.
const (
	InitialZoom = 13
	FocusZoom   = 15
)

// MapView receives rendering commands.
type MapView interface {
	SetView(center domain.Coords, zoom int)
	AddMarker(m mapview.Marker)
	Reset()
}

// Locator resolves the user's current position.
type Locator interface {
	Locate(ctx context.Context) (domain.Coords, error)
}

// Submission is the form as entered, together with the map position that was clicked.
type Submission struct {
	Coords domain.Coords
	Raw    domain.RawInput
}

// View is a point-in-time copy of a workout, safe to read without holding the controller lock.
type View struct {
	ID       domain.ID
	Type     domain.Type
	Date     time.Time
	Coords   domain.Coords
	Distance float64
	Duration float64
	Clicks   int
	Title    string
	Emoji    string
	Metric   domain.Metric
	Detail   domain.Metric
}

func viewOf(w domain.Workout) View {
	return View{
		ID:       w.ID(),
		Type:     w.Type(),
		Date:     w.Date(),
		Coords:   w.Coords(),
		Distance: w.Distance(),
		Duration: w.Duration(),
		Clicks:   w.Clicks(),
		Title:    w.Describe(),
		Emoji:    w.Type().Emoji(),
		Metric:   w.Metric(),
		Detail:   w.Detail(),
	}
}

// Option configures a Controller.
type Option func(*Controller)

// WithPublisher sets where workout events are sent. The default drops them.
func WithPublisher(p events.Publisher) Option {
	return func(c *Controller) {
		c.publisher = p
	}
}

// WithClock overrides the clock used to stamp view and reset events.
func WithClock(clk clock.PassiveClock) Option {
	return func(c *Controller) {
		c.clock = clk
	}
}

// Controller serialises every command against the store behind one mutex.
type Controller struct {
	mu        sync.Mutex
	store     *domain.Store
	factory   *domain.Factory
	mapView   MapView
	locator   Locator
	publisher events.Publisher
	clock     clock.PassiveClock

	// generation invalidates map initialisations started before a reset.
	generation int
	mapLoaded  bool
	mapReady   chan struct{}
}

// New constructs a Controller. Call Start before issuing commands.
func New(store *domain.Store, factory *domain.Factory, mapView MapView, locator Locator, opts ...Option) *Controller {
	c := &Controller{
		store:     store,
		factory:   factory,
		mapView:   mapView,
		locator:   locator,
		publisher: events.NoopPublisher{},
		clock:     clock.RealClock{},
		mapReady:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start loads the persisted workouts and then begins map initialisation in the background.
// Store commands are usable as soon as Start returns; the map renders once a position resolves.
func (c *Controller) Start(ctx context.Context) domain.LoadReport {
	c.mu.Lock()
	report := c.store.Load(ctx)
	gen, ready := c.generation, c.mapReady
	c.mu.Unlock()

	go c.initMap(context.WithoutCancel(ctx), gen, ready)
	return report
}

// MapReady is closed once the map has been centred and the stored workouts rendered.
func (c *Controller) MapReady() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mapReady
}

func (c *Controller) initMap(ctx context.Context, gen int, ready chan struct{}) {
	coords, err := c.locator.Locate(ctx)
	if err != nil {
		log.Info(ctx, "map not initialised", j.KV("reason", err.Error()))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	c.mapView.SetView(coords, InitialZoom)
	for _, w := range c.store.All() {
		c.mapView.AddMarker(mapview.MarkerFor(w))
	}
	c.mapLoaded = true
	close(ready)
	log.Info(ctx, "map initialised", j.KV("workouts", c.store.Len()))
}

// SubmitWorkout validates the form and records the new workout. A *domain.ValidationError
// means nothing was stored. Persistence failures are logged and do not fail the command.
func (c *Controller) SubmitWorkout(ctx context.Context, sub Submission) (View, error) {
	if err := domain.ValidateCoords(sub.Coords); err != nil {
		return View{}, err
	}
	in, err := domain.ParseInput(sub.Raw)
	if err != nil {
		return View{}, err
	}

	c.mu.Lock()
	w, err := c.factory.Build(sub.Coords, in)
	if err != nil {
		c.mu.Unlock()
		return View{}, err
	}
	if err := c.store.Add(ctx, w); err != nil {
		log.Error(ctx, jerrors.Wrap(err, "workout kept in memory only", j.KV("workout_id", w.ID().String())))
	}
	if c.mapLoaded {
		c.mapView.AddMarker(mapview.MarkerFor(w))
	}
	v, ev := viewOf(w), events.Recorded(w)
	c.mu.Unlock()

	c.publish(ctx, ev)
	return v, nil
}

// SelectWorkout counts a list click on id and centres the map on it.
func (c *Controller) SelectWorkout(ctx context.Context, id domain.ID) (View, error) {
	c.mu.Lock()
	w, err := c.store.RecordView(ctx, id)
	if errors.Is(err, domain.ErrWorkoutNotFound) {
		c.mu.Unlock()
		return View{}, err
	} else if err != nil {
		log.Error(ctx, jerrors.Wrap(err, "view count kept in memory only", j.KV("workout_id", id.String())))
	}
	if c.mapLoaded {
		c.mapView.SetView(w.Coords(), FocusZoom)
	}
	v, ev := viewOf(w), events.Viewed(w, c.clock.Now())
	c.mu.Unlock()

	c.publish(ctx, ev)
	return v, nil
}

// Reset erases every workout and starts again from the persisted state, as a fresh start would.
// A failure to erase the blob store is returned after the reload.
func (c *Controller) Reset(ctx context.Context) (domain.LoadReport, error) {
	c.mu.Lock()
	count := c.store.Len()
	clearErr := c.store.Clear(ctx)
	report := c.store.Load(ctx)

	c.mapView.Reset()
	c.mapLoaded = false
	c.generation++
	c.mapReady = make(chan struct{})
	gen, ready := c.generation, c.mapReady
	c.mu.Unlock()

	go c.initMap(context.WithoutCancel(ctx), gen, ready)

	if clearErr != nil {
		return report, clearErr
	}
	c.publish(ctx, events.Cleared(count, c.clock.Now()))
	return report, nil
}

// Workouts returns every workout, newest first.
func (c *Controller) Workouts() []View {
	c.mu.Lock()
	defer c.mu.Unlock()

	all := c.store.All()
	views := make([]View, len(all))
	for i, w := range all {
		views[len(all)-1-i] = viewOf(w)
	}
	return views
}

// Workout returns the workout with the given id.
func (c *Controller) Workout(id domain.ID) (View, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.store.FindByID(id)
	if !ok {
		return View{}, false
	}
	return viewOf(w), true
}

func (c *Controller) publish(ctx context.Context, e events.Event) {
	if err := c.publisher.Publish(ctx, e); err != nil {
		log.Error(ctx, jerrors.Wrap(err, "publish workout event", j.KV("event_type", e.Type)))
	}
}
