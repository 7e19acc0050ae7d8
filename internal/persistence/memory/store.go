// Package memory holds workout blobs in process memory. Values do not survive a restart.
package memory

import (
	"context"
	"sync"
)

// BlobStore is a map-backed blob store safe for concurrent use.
type BlobStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewBlobStore constructs an empty BlobStore.
func NewBlobStore() *BlobStore {
	return &BlobStore{values: make(map[string]string)}
}

func (s *BlobStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *BlobStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *BlobStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string)
	return nil
}
