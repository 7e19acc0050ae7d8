// Package postgres persists workout blobs in a namespaced Postgres table.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	jerrors "github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

// Querier is the subset of pgx used by the repository.
// Both *pgxpool.Pool and pgxmock pools satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, jerrors.Wrap(err, "open postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, jerrors.Wrap(err, "ping postgres")
	}
	return pool, nil
}

// Repository stores blobs in workout_blobs, one row per (namespace, key).
type Repository struct {
	db        Querier
	namespace string
}

// NewRepository constructs a Repository scoped to namespace.
func NewRepository(db Querier, namespace string) *Repository {
	return &Repository{db: db, namespace: namespace}
}

// Get returns the blob under key.
func (r *Repository) Get(ctx context.Context, key string) (string, bool, error) {
	const query = `SELECT value FROM workout_blobs WHERE namespace=$1 AND key=$2`

	var value string
	err := r.db.QueryRow(ctx, query, r.namespace, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	} else if err != nil {
		return "", false, jerrors.Wrap(err, "select blob", j.KV("key", key))
	}
	return value, true, nil
}

// Set upserts the blob under key.
func (r *Repository) Set(ctx context.Context, key, value string) error {
	const stmt = `INSERT INTO workout_blobs (namespace, key, value, updated_at)
        VALUES ($1,$2,$3,now())
        ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

	if _, err := r.db.Exec(ctx, stmt, r.namespace, key, value); err != nil {
		return jerrors.Wrap(err, "upsert blob", j.KV("key", key))
	}
	return nil
}

// Clear deletes every blob in the namespace.
func (r *Repository) Clear(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM workout_blobs WHERE namespace=$1`, r.namespace); err != nil {
		return jerrors.Wrap(err, "delete blobs", j.KV("namespace", r.namespace))
	}
	return nil
}
