//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/workouts/internal/domain"
)

func TestRepositoryIsolatesNamespaces(t *testing.T) {
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("workouts"),
		postgrescontainer.WithUsername("mapty"),
		postgrescontainer.WithPassword("mapty"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))

	runMigrations(t, ctx, connStr)

	pool, err := Connect(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	mine := NewRepository(pool, "alice")
	theirs := NewRepository(pool, "bob")

	store := domain.NewStore(mine)
	require.NoError(t, store.Add(ctx, domain.NewRunning(domain.Coords{Lat: 40.7, Lng: -74}, 5, 25, 180)))
	require.NoError(t, store.Add(ctx, domain.NewCycling(domain.Coords{Lat: 40.7, Lng: -74}, 20, 60, 150)))
	require.NoError(t, theirs.Set(ctx, domain.DefaultKey, "[]"))

	reloaded := domain.NewStore(mine)
	report := reloaded.Load(ctx)
	require.Equal(t, 2, report.Loaded)
	require.Equal(t, store.All()[1].ID(), reloaded.All()[1].ID())

	require.NoError(t, mine.Clear(ctx))

	_, ok, err := mine.Get(ctx, domain.DefaultKey)
	require.NoError(t, err)
	require.False(t, ok)

	v, ok, err := theirs.Get(ctx, domain.DefaultKey)
	require.NoError(t, err)
	require.True(t, ok, "clearing one namespace must not touch another")
	require.Equal(t, "[]", v)
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	files := []string{
		"../../../db/postgres/migrations/0001_init.up.sql",
	}

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	for _, rel := range files {
		path := resolvePath(t, rel)
		contents, readErr := os.ReadFile(path)
		require.NoError(t, readErr)

		_, execErr := pool.Exec(ctx, string(contents))
		require.NoError(t, execErr)
	}
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
