package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/workouts/internal/domain"
	"example.com/workouts/internal/persistence/sqlite"
)

var _ domain.BlobStore = (*sqlite.BlobStore)(nil)

func open(t *testing.T, path, namespace string) *sqlite.BlobStore {
	t.Helper()
	s, err := sqlite.Open(path, namespace)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBlobStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "workouts.db")
	s := open(t, path, "mapty")

	_, ok, err := s.Get(ctx, "workouts")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "workouts", "[]"))
	require.NoError(t, s.Set(ctx, "workouts", `[{"type":"cycling"}]`))

	v, ok, err := s.Get(ctx, "workouts")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `[{"type":"cycling"}]`, v)
}

func TestClearKeepsOtherNamespaces(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "workouts.db")
	mine := open(t, path, "alice")
	theirs := open(t, path, "bob")

	require.NoError(t, mine.Set(ctx, "workouts", "[]"))
	require.NoError(t, theirs.Set(ctx, "workouts", "[]"))

	require.NoError(t, mine.Clear(ctx))

	_, ok, err := mine.Get(ctx, "workouts")
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = theirs.Get(ctx, "workouts")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "workouts.db")

	first, err := sqlite.Open(path, "mapty")
	require.NoError(t, err)
	store := domain.NewStore(first)
	require.NoError(t, store.Add(ctx, domain.NewRunning(domain.Coords{Lat: 40.7, Lng: -74}, 5, 25, 180)))
	require.NoError(t, first.Close())

	second := open(t, path, "mapty")
	reloaded := domain.NewStore(second)
	report := reloaded.Load(ctx)
	require.Equal(t, 1, report.Loaded)
	require.Equal(t, store.All()[0].ID(), reloaded.All()[0].ID())
	require.Equal(t, 5.0, reloaded.All()[0].Metric().Value)
}

func TestOpenRequiresNamespace(t *testing.T) {
	_, err := sqlite.Open(filepath.Join(t.TempDir(), "workouts.db"), "")
	require.Error(t, err)
}
