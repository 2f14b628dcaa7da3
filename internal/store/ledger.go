package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// RandomKey is the global record list of the random-pairing survey
const RandomKey = "pairwiseEvaluations"

// HybridKey returns the per-evaluator record list key of the hybrid survey
func HybridKey(evaluatorID string) string {
	if evaluatorID == "" {
		evaluatorID = "default"
	}
	return "completedEvaluations_" + evaluatorID
}

// Ledger is an append-only list of records stored as one JSON array per key.
// Records are never mutated or removed.
type Ledger[T any] struct {
	store Store
	mu    sync.Mutex
}

// NewLedger creates a ledger on top of s
func NewLedger[T any](s Store) *Ledger[T] {
	return &Ledger[T]{store: s}
}

// List returns every record under key; a missing key is an empty list
func (l *Ledger[T]) List(ctx context.Context, key string) ([]T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.list(ctx, key)
}

// Append adds rec to the list under key and returns the new length
func (l *Ledger[T]) Append(ctx context.Context, key string, rec T) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.list(ctx, key)
	if err != nil {
		return 0, err
	}
	records = append(records, rec)

	data, err := json.Marshal(records)
	if err != nil {
		return 0, fmt.Errorf("marshal records: %w", err)
	}
	if err := l.store.Set(ctx, key, data); err != nil {
		return 0, fmt.Errorf("save records: %w", err)
	}
	return len(records), nil
}

// Count returns the number of records under key
func (l *Ledger[T]) Count(ctx context.Context, key string) (int, error) {
	records, err := l.List(ctx, key)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// Find returns the first record under key accepted by match
func (l *Ledger[T]) Find(ctx context.Context, key string, match func(T) bool) (T, bool, error) {
	var zero T
	records, err := l.List(ctx, key)
	if err != nil {
		return zero, false, err
	}
	for _, rec := range records {
		if match(rec) {
			return rec, true, nil
		}
	}
	return zero, false, nil
}

func (l *Ledger[T]) list(ctx context.Context, key string) ([]T, error) {
	data, err := l.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode records under %s: %w", key, err)
	}
	return records, nil
}
