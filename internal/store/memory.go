package store

import (
	"context"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps values in process memory; contents vanish on restart
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore creates a new memory store whose entries never expire
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

// Get retrieves a value
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	if val, found := s.cache.Get(key); found {
		return val.([]byte), nil
	}
	return nil, ErrNotFound
}

// Set stores a copy of value
func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)
	s.cache.Set(key, cp, gocache.NoExpiration)
	return nil
}

// Delete removes a value
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

// Close flushes all values
func (s *MemoryStore) Close() error {
	s.cache.Flush()
	return nil
}
