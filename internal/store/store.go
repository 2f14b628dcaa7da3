// Package store abstracts the key-value substrate evaluation records are
// persisted to, so the survey logic never touches a concrete backend.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrNotFound is returned by Get when the key has no value
var ErrNotFound = errors.New("store: key not found")

// Store defines the interface for durable key-value storage
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// FileKey generates a filesystem-safe name for a key
func FileKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return "pairwise-v1-" + hex.EncodeToString(hash[:])
}
