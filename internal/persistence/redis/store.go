// Package redis persists workout blobs in Redis under a namespace prefix.
package redis

import (
	"context"
	"errors"

	jerrors "github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	goredis "github.com/redis/go-redis/v9"
)

const scanBatch = 100

// Options configures a client connection.
type Options struct {
	Addr     string
	Password string
}

// Connect returns a client for opts, or nil when no address is configured.
func Connect(opts Options) *goredis.Client {
	if opts.Addr == "" {
		return nil
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
	})
}

// BlobStore keeps each blob as a Redis string at "<namespace>:<key>".
type BlobStore struct {
	client    goredis.UniversalClient
	namespace string
}

// NewBlobStore constructs a BlobStore. Clear only removes keys under namespace.
func NewBlobStore(client goredis.UniversalClient, namespace string) *BlobStore {
	return &BlobStore{client: client, namespace: namespace}
}

func (s *BlobStore) key(k string) string {
	return s.namespace + ":" + k
}

func (s *BlobStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	} else if err != nil {
		return "", false, jerrors.Wrap(err, "redis get", j.KV("key", s.key(key)))
	}
	return v, true, nil
}

func (s *BlobStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return jerrors.Wrap(err, "redis set", j.KV("key", s.key(key)))
	}
	return nil
}

func (s *BlobStore) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.key("*"), scanBatch).Result()
		if err != nil {
			return jerrors.Wrap(err, "redis scan", j.KV("namespace", s.namespace))
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return jerrors.Wrap(err, "redis del", j.KV("namespace", s.namespace))
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
