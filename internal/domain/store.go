package domain

import (
	"context"
	"errors"

	jerrors "github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
	"k8s.io/utils/clock"

	"example.com/workouts/internal/observability"
)

// DefaultKey names the blob that holds all persisted workouts.
const DefaultKey = "workouts"

// BlobStore is the key-value capability the store persists through.
type BlobStore interface {
	// Get returns the value under key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set overwrites the value under key.
	Set(ctx context.Context, key, value string) error
	// Clear erases every value owned by the blob store.
	Clear(ctx context.Context) error
}

// LoadReport summarises a Load.
type LoadReport struct {
	Loaded int
	// Skipped lists the persisted records that could not be rebuilt.
	Skipped []error
	// Recovered is the read or parse failure that Load treated as an empty store.
	Recovered error
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithKey overrides the blob key.
func WithKey(key string) StoreOption {
	return func(s *Store) {
		s.key = key
	}
}

// WithCodec overrides the codec used for Persist and Load.
func WithCodec(codec Codec) StoreOption {
	return func(s *Store) {
		s.codec = codec
	}
}

// WithClock overrides the clock used to stamp persistence.
func WithClock(clk clock.PassiveClock) StoreOption {
	return func(s *Store) {
		s.clock = clk
	}
}

// Store keeps workouts in insertion order and mirrors them to a BlobStore.
// It is not safe for concurrent use.
type Store struct {
	blobs    BlobStore
	key      string
	codec    Codec
	clock    clock.PassiveClock
	workouts []Workout
}

// NewStore constructs an empty Store. Call Load to populate it from the blob store.
func NewStore(blobs BlobStore, opts ...StoreOption) *Store {
	s := &Store{
		blobs: blobs,
		key:   DefaultKey,
		codec: NewCodec(nil, PreserveIdentity),
		clock: clock.RealClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add appends w and persists the whole sequence. w stays in memory even if persisting fails.
func (s *Store) Add(ctx context.Context, w Workout) error {
	s.workouts = append(s.workouts, w)
	observability.RecordWorkoutAdded(string(w.Type()))
	observability.SetStoreSize(len(s.workouts))
	return s.Persist(ctx)
}

// FindByID returns the workout with the given id.
func (s *Store) FindByID(id ID) (Workout, bool) {
	for _, w := range s.workouts {
		if w.ID() == id {
			return w, true
		}
	}
	return nil, false
}

// All returns the workouts in insertion order. The slice is a copy.
func (s *Store) All() []Workout {
	out := make([]Workout, len(s.workouts))
	copy(out, s.workouts)
	return out
}

// Len returns the number of workouts held in memory.
func (s *Store) Len() int {
	return len(s.workouts)
}

// RecordView counts a selection of the workout with the given id and persists the new count.
func (s *Store) RecordView(ctx context.Context, id ID) (Workout, error) {
	w, ok := s.FindByID(id)
	if !ok {
		return nil, jerrors.Wrap(ErrWorkoutNotFound, "record view", j.KV("workout_id", string(id)))
	}
	w.RecordView()
	observability.RecordWorkoutViewed()
	return w, s.Persist(ctx)
}

// Clear drops every workout and erases the backing blob store.
func (s *Store) Clear(ctx context.Context) error {
	s.workouts = nil
	observability.SetStoreSize(0)
	if err := s.blobs.Clear(ctx); err != nil {
		observability.RecordPersistenceError("clear")
		return jerrors.Wrap(err, "clear workouts")
	}
	return nil
}

// Persist overwrites the blob with the full sequence.
func (s *Store) Persist(ctx context.Context) error {
	blob, err := s.codec.Encode(s.workouts)
	if err != nil {
		observability.RecordPersistenceError("encode")
		return err
	}
	if err := s.blobs.Set(ctx, s.key, blob); err != nil {
		observability.RecordPersistenceError("set")
		return jerrors.Wrap(err, "persist workouts", j.KV("key", s.key))
	}
	observability.RecordPersisted(s.clock.Now())
	return nil
}

// Load replaces the in-memory sequence with the persisted one. An absent, unreadable
// or malformed blob yields an empty store; records that cannot be rebuilt are skipped
// and reported.
func (s *Store) Load(ctx context.Context) LoadReport {
	var report LoadReport
	s.workouts = nil
	defer func() {
		observability.SetStoreSize(len(s.workouts))
	}()

	blob, ok, err := s.blobs.Get(ctx, s.key)
	if err != nil {
		observability.RecordPersistenceError("get")
		report.Recovered = jerrors.Wrap(err, "read persisted workouts", j.KV("key", s.key))
		log.Error(ctx, report.Recovered)
		return report
	}
	if !ok {
		return report
	}

	workouts, skipped, err := s.codec.Decode(blob)
	if err != nil {
		observability.RecordPersistenceError("decode")
		report.Recovered = err
		log.Error(ctx, jerrors.Wrap(err, "discarding persisted workouts", j.KV("key", s.key)))
		return report
	}

	for _, skip := range skipped {
		observability.RecordReconstitutionSkipped(skipReason(skip))
		log.Error(ctx, jerrors.Wrap(skip, "skipped persisted workout"))
	}

	s.workouts = workouts
	report.Loaded = len(workouts)
	report.Skipped = skipped
	log.Info(ctx, "workouts loaded",
		j.KV("loaded", report.Loaded),
		j.KV("skipped", len(skipped)),
		j.KV("identity", s.codec.policy.String()))
	return report
}

func skipReason(err error) string {
	var unknown *UnknownVariantError
	if errors.As(err, &unknown) {
		return "unknown_variant"
	}
	return "invalid_record"
}
