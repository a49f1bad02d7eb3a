package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryOpener hands out in-memory buckets, creating them on first use.
// Used by tests in place of the GCS client.
type MemoryOpener struct {
	mu      sync.Mutex
	buckets map[string]*MemoryStore
}

func NewMemoryOpener() *MemoryOpener {
	return &MemoryOpener{buckets: make(map[string]*MemoryStore)}
}

func (o *MemoryOpener) Bucket(name string) BlobStore {
	o.mu.Lock()
	defer o.mu.Unlock()
	if b, ok := o.buckets[name]; ok {
		return b
	}
	b := NewMemoryStore()
	o.buckets[name] = b
	return b
}

type blob struct {
	data        []byte
	contentType string
}

// MemoryStore is an in-memory BlobStore. PutIfAbsent is atomic under the
// store mutex, matching the conditional-create semantics of the GCS store.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string]blob
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]blob)}
}

func (s *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[key]
	return ok, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[key]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", key, ErrNotFound)
	}
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = blob{data: append([]byte(nil), data...), contentType: contentType}
	return nil
}

func (s *MemoryStore) PutIfAbsent(_ context.Context, key string, data []byte, contentType string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[key]; ok {
		return false, nil
	}
	s.blobs[key] = blob{data: append([]byte(nil), data...), contentType: contentType}
	return true, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

func (s *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.blobs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
