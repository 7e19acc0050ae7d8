// Package sqlite persists workout blobs in a local SQLite file through gorm.
package sqlite

import (
	"context"
	"errors"
	"time"

	"github.com/glebarez/sqlite"
	jerrors "github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Blob is one persisted value.
type Blob struct {
	Namespace string `gorm:"primaryKey"`
	Key       string `gorm:"primaryKey"`
	Value     string
	UpdatedAt time.Time
}

func (Blob) TableName() string { return "workout_blobs" }

// BlobStore keeps blobs in the workout_blobs table.
type BlobStore struct {
	db        *gorm.DB
	namespace string
}

// Open connects to the database file at path and migrates the schema.
// namespace must not be empty.
func Open(path, namespace string) (*BlobStore, error) {
	if namespace == "" {
		return nil, jerrors.New("sqlite blob store needs a namespace")
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, jerrors.Wrap(err, "open sqlite", j.KV("path", path))
	}
	if err := db.AutoMigrate(&Blob{}); err != nil {
		return nil, jerrors.Wrap(err, "migrate sqlite", j.KV("path", path))
	}
	return &BlobStore{db: db, namespace: namespace}, nil
}

// Close releases the underlying connection.
func (s *BlobStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *BlobStore) Get(ctx context.Context, key string) (string, bool, error) {
	var b Blob
	err := s.db.WithContext(ctx).
		Where(&Blob{Namespace: s.namespace, Key: key}).
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	} else if err != nil {
		return "", false, jerrors.Wrap(err, "select blob", j.KV("key", key))
	}
	return b.Value, true, nil
}

func (s *BlobStore) Set(ctx context.Context, key, value string) error {
	b := Blob{Namespace: s.namespace, Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&b).Error
	if err != nil {
		return jerrors.Wrap(err, "upsert blob", j.KV("key", key))
	}
	return nil
}

func (s *BlobStore) Clear(ctx context.Context) error {
	err := s.db.WithContext(ctx).Where(&Blob{Namespace: s.namespace}).Delete(&Blob{}).Error
	if err != nil {
		return jerrors.Wrap(err, "delete blobs", j.KV("namespace", s.namespace))
	}
	return nil
}
