package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"example.com/workouts/internal/domain"
)

func sampleWorkouts(f *domain.Factory) []domain.Workout {
	run := f.NewRunning(nyc, 5, 25, 180)
	ride := f.NewCycling(domain.Coords{Lat: 51.5, Lng: -0.12}, 20, 60, 150)
	run.RecordView()
	run.RecordView()
	return []domain.Workout{run, ride}
}

func requireSameWorkout(t *testing.T, want, got domain.Workout) {
	t.Helper()
	require.Equal(t, want.Type(), got.Type())
	require.Equal(t, want.Coords(), got.Coords())
	require.Equal(t, want.Distance(), got.Distance())
	require.Equal(t, want.Duration(), got.Duration())
	require.Equal(t, want.Metric(), got.Metric())
	require.Equal(t, want.Detail(), got.Detail())
}

func TestRoundTripPreservingIdentity(t *testing.T) {
	f := newFactory()
	codec := domain.NewCodec(f, domain.PreserveIdentity)
	before := sampleWorkouts(f)

	blob, err := codec.Encode(before)
	require.NoError(t, err)

	decoded, skipped, err := codec.Decode(blob)
	require.NoError(t, err)
	require.Empty(t, skipped)
	require.Len(t, decoded, len(before))

	for i := range before {
		requireSameWorkout(t, before[i], decoded[i])
		require.Equal(t, before[i].ID(), decoded[i].ID())
		require.True(t, before[i].Date().Equal(decoded[i].Date()))
		require.Equal(t, before[i].Clicks(), decoded[i].Clicks())
	}
}

func TestRoundTripFreshIdentity(t *testing.T) {
	f := newFactory()
	before := sampleWorkouts(f)

	later := clocktesting.NewFakePassiveClock(time.Date(2025, time.January, 2, 9, 0, 0, 0, time.UTC))
	reloader := domain.NewFactory(&domain.SequenceGenerator{Prefix: "r"}, later)
	codec := domain.NewCodec(reloader, domain.FreshIdentity)

	blob, err := codec.Encode(before)
	require.NoError(t, err)

	decoded, skipped, err := codec.Decode(blob)
	require.NoError(t, err)
	require.Empty(t, skipped)
	require.Len(t, decoded, 2)

	for i := range before {
		requireSameWorkout(t, before[i], decoded[i])
		require.NotEqual(t, before[i].ID(), decoded[i].ID())
		require.Equal(t, later.Now(), decoded[i].Date())
		require.Zero(t, decoded[i].Clicks())
	}
}

func TestDecodeSkipsUnknownVariant(t *testing.T) {
	codec := domain.NewCodec(newFactory(), domain.PreserveIdentity)
	blob := `[
		{"type":"running","coords":[40.7,-74],"distance":5,"duration":25,"cadence":180,"id":"a","clicks":0},
		{"type":"swimming","coords":[40.7,-74],"distance":1,"duration":30,"id":"b"},
		{"type":"cycling","coords":[40.7,-74],"distance":20,"duration":60,"elevationGain":150,"id":"c"}
	]`

	decoded, skipped, err := codec.Decode(blob)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	require.Equal(t, domain.ID("a"), decoded[0].ID())
	require.Equal(t, domain.ID("c"), decoded[1].ID())

	require.Len(t, skipped, 1)
	var unknown *domain.UnknownVariantError
	require.ErrorAs(t, skipped[0], &unknown)
	require.Equal(t, "swimming", unknown.Type)
	require.Equal(t, 1, unknown.Index)
}

func TestDecodeRecomputesDerivedMetrics(t *testing.T) {
	codec := domain.NewCodec(newFactory(), domain.PreserveIdentity)
	blob := `[
		{"type":"running","coords":[40.7,-74],"distance":5,"duration":25,"cadence":180,"pace":"99.99"},
		{"type":"cycling","coords":[40.7,-74],"distance":20,"duration":60,"elevationGain":150,"speed":1234}
	]`

	decoded, skipped, err := codec.Decode(blob)
	require.NoError(t, err)
	require.Empty(t, skipped)
	require.Equal(t, 5.0, decoded[0].(*domain.Running).Pace())
	require.Equal(t, 0.33, decoded[1].(*domain.Cycling).Speed())
}

func TestDecodeAcceptsMisspelledCadence(t *testing.T) {
	codec := domain.NewCodec(newFactory(), domain.FreshIdentity)
	blob := `[{"type":"running","coords":[40.7,-74],"distance":5,"duration":25,"candence":175,"pace":"5.00","date":"2024-10-19T08:30:00.000Z","id":"k2j3h4g5f","clicks":0}]`

	decoded, skipped, err := codec.Decode(blob)
	require.NoError(t, err)
	require.Empty(t, skipped)
	require.Equal(t, 175, decoded[0].(*domain.Running).Cadence())
}

func TestDecodeSkipsInvalidRecords(t *testing.T) {
	codec := domain.NewCodec(newFactory(), domain.PreserveIdentity)
	blob := `[
		{"type":"running","coords":[40.7,-74],"distance":0,"duration":25,"cadence":180},
		{"type":"running","coords":[40.7],"distance":5,"duration":25,"cadence":180},
		{"type":"cycling","coords":[40.7,-74],"distance":20,"duration":60},
		{"type":"cycling","coords":[40.7,-74],"distance":"far","duration":60,"elevationGain":1},
		{"type":"cycling","coords":[40.7,-74],"distance":20,"duration":60,"elevationGain":1}
	]`

	decoded, skipped, err := codec.Decode(blob)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	require.Len(t, skipped, 4)

	for i, skip := range skipped {
		var invalid *domain.InvalidRecordError
		require.ErrorAs(t, skip, &invalid)
		require.Equal(t, i, invalid.Index)
	}

	var verr *domain.ValidationError
	require.ErrorAs(t, skipped[0], &verr)
	require.Equal(t, domain.RuleNonPositive, verr.Rule)
}

func TestDecodeRejectsCadenceThatIsNotAPositiveInteger(t *testing.T) {
	codec := domain.NewCodec(newFactory(), domain.PreserveIdentity)
	blob := `[
		{"type":"running","coords":[40.7,-74],"distance":5,"duration":25,"cadence":0.3},
		{"type":"running","coords":[40.7,-74],"distance":5,"duration":25,"cadence":1e300},
		{"type":"running","coords":[40.7,-74],"distance":5,"duration":25,"cadence":179.6}
	]`

	decoded, skipped, err := codec.Decode(blob)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	require.Equal(t, 180, decoded[0].(*domain.Running).Cadence())
	require.Len(t, skipped, 2)

	var verr *domain.ValidationError
	require.ErrorAs(t, skipped[0], &verr)
	require.Equal(t, domain.RuleNonPositive, verr.Rule)
	require.ErrorAs(t, skipped[1], &verr)
	require.Equal(t, domain.RuleOutOfRange, verr.Rule)
}

func TestDecodeToleratesUnreadableIdentity(t *testing.T) {
	blob := `[{"type":"cycling","coords":[1,2],"distance":20,"duration":60,"elevationGain":10,
		"date":"last tuesday","id":42,"clicks":2.5}]`

	for _, policy := range []domain.IdentityPolicy{domain.PreserveIdentity, domain.FreshIdentity} {
		t.Run(policy.String(), func(t *testing.T) {
			decoded, skipped, err := domain.NewCodec(newFactory(), policy).Decode(blob)
			require.NoError(t, err)
			require.Empty(t, skipped)
			require.Len(t, decoded, 1)

			w := decoded[0]
			require.Equal(t, domain.ID("w1"), w.ID())
			require.Equal(t, 2024, w.Date().Year())
			require.Zero(t, w.Clicks())
		})
	}
}

func TestDecodeReassignsDuplicateIDs(t *testing.T) {
	codec := domain.NewCodec(newFactory(), domain.PreserveIdentity)
	blob := `[
		{"type":"running","coords":[1,2],"distance":5,"duration":25,"cadence":180,"id":"same","clicks":3},
		{"type":"running","coords":[1,2],"distance":6,"duration":30,"cadence":170,"id":"same","clicks":-4}
	]`

	decoded, _, err := codec.Decode(blob)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	require.Equal(t, domain.ID("same"), decoded[0].ID())
	require.NotEqual(t, domain.ID("same"), decoded[1].ID())
	require.Equal(t, 3, decoded[0].Clicks())
	require.Zero(t, decoded[1].Clicks())
}

func TestDecodeMalformedBlob(t *testing.T) {
	codec := domain.NewCodec(newFactory(), domain.PreserveIdentity)

	_, _, err := codec.Decode(`{"type":"running"}`)
	jtest.Require(t, domain.ErrMalformedBlob, err)

	_, _, err = codec.Decode(`not json`)
	jtest.Require(t, domain.ErrMalformedBlob, err)

	decoded, skipped, err := codec.Decode(`null`)
	require.NoError(t, err)
	require.Empty(t, decoded)
	require.Empty(t, skipped)
}

func TestEncodeWritesPersistedShape(t *testing.T) {
	f := newFactory()
	blob, err := domain.NewCodec(f, domain.PreserveIdentity).Encode(sampleWorkouts(f))
	require.NoError(t, err)

	var plain []map[string]any
	require.NoError(t, json.Unmarshal([]byte(blob), &plain))
	require.Len(t, plain, 2)

	require.Equal(t, "running", plain[0]["type"])
	require.Equal(t, []any{40.7, -74.0}, plain[0]["coords"])
	require.Equal(t, 180.0, plain[0]["cadence"])
	require.Equal(t, 5.0, plain[0]["pace"])
	require.Equal(t, 2.0, plain[0]["clicks"])
	require.Equal(t, "w1", plain[0]["id"])
	require.Equal(t, "2024-10-19T08:30:00Z", plain[0]["date"])
	require.NotContains(t, plain[0], "elevationGain")

	require.Equal(t, "cycling", plain[1]["type"])
	require.Equal(t, 150.0, plain[1]["elevationGain"])
	require.Equal(t, 0.33, plain[1]["speed"])
	require.NotContains(t, plain[1], "cadence")
}

func TestParseIdentityPolicy(t *testing.T) {
	p, err := domain.ParseIdentityPolicy("")
	require.NoError(t, err)
	require.Equal(t, domain.PreserveIdentity, p)

	p, err = domain.ParseIdentityPolicy("Fresh")
	require.NoError(t, err)
	require.Equal(t, domain.FreshIdentity, p)

	_, err = domain.ParseIdentityPolicy("sometimes")
	require.Error(t, err)
}
