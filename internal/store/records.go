package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// Records wraps a Namespace with JSON encoding for one record type.
type Records[T any] struct {
	ns *Namespace
}

// NewRecords builds a typed view over a namespace.
func NewRecords[T any](ns *Namespace) *Records[T] {
	return &Records[T]{ns: ns}
}

// Get decodes the record stored under key, or returns nil when absent.
func (r *Records[T]) Get(ctx context.Context, key string) (*T, error) {
	raw, ok, err := r.ns.GetItem(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", r.ns.Name(), key, err)
	}
	return &value, nil
}

// Set encodes and stores the record under key.
func (r *Records[T]) Set(ctx context.Context, key string, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", r.ns.Name(), key, err)
	}
	return r.ns.SetItem(ctx, key, raw)
}

// Remove deletes the record under key. Removing an absent key is not an error.
func (r *Records[T]) Remove(ctx context.Context, key string) error {
	return r.ns.RemoveItem(ctx, key)
}

// Keys returns every key in the underlying namespace.
func (r *Records[T]) Keys(ctx context.Context) ([]string, error) {
	return r.ns.GetKeys(ctx)
}

// Count returns the number of stored records.
func (r *Records[T]) Count(ctx context.Context) (int, error) {
	return r.ns.Count(ctx)
}
