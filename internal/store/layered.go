package store

import (
	"context"
	"errors"
)

// LayeredStore implements a two-layer store (memory in front of disk).
// Writes go to both layers; the disk layer is authoritative.
type LayeredStore struct {
	memory Store
	disk   Store
}

// NewLayeredStore creates a new layered store persisting under diskDir
func NewLayeredStore(diskDir string) *LayeredStore {
	return &LayeredStore{
		memory: NewMemoryStore(),
		disk:   NewDiskStore(diskDir),
	}
}

// Get retrieves a value (checks memory first, then disk)
func (s *LayeredStore) Get(ctx context.Context, key string) ([]byte, error) {
	if val, err := s.memory.Get(ctx, key); err == nil {
		return val, nil
	}

	val, err := s.disk.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	// Promote to memory
	_ = s.memory.Set(ctx, key, val)
	return val, nil
}

// Set stores a value on disk, then in memory
func (s *LayeredStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.disk.Set(ctx, key, value); err != nil {
		return err
	}
	return s.memory.Set(ctx, key, value)
}

// Delete removes a value from both layers
func (s *LayeredStore) Delete(ctx context.Context, key string) error {
	_ = s.memory.Delete(ctx, key)
	return s.disk.Delete(ctx, key)
}

// Close closes both layers
func (s *LayeredStore) Close() error {
	return errors.Join(s.memory.Close(), s.disk.Close())
}
