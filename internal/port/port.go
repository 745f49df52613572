// Package port defines the persistence contract the form pipelines write
// through, plus the backends and wrappers that implement it.
//
// A Port is an asynchronous, unreliable key-value store holding opaque
// documents. Get of a missing key succeeds with a nil value. Put fully
// replaces the value under key; there is no partial update.
//
// Implementations in this package:
//   - Memory: process-local map
//   - Simulated: wraps any Port with configurable latency and write failures
//   - Instrumented: wraps any Port with Prometheus metrics
//
// Durable backends live under internal/store.
package port

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// FormsKey is the key under which the whole forms document is stored.
const FormsKey = "forms"

// Port is the persistence contract.
type Port interface {
	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// Get returns the value stored under key, or nil if there is none.
	Get(ctx context.Context, key string) ([]byte, error)
}

// ErrInjectedFailure is the failure Simulated injects into writes.
var ErrInjectedFailure = errors.New("failed to save data")

// StorageError describes a failed port operation.
type StorageError struct {
	Op  string // "get" or "put"
	Key string
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err is or wraps a *StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// GetJSON reads key and decodes it into a T. found is false when the key has
// no value.
func GetJSON[T any](ctx context.Context, p Port, key string) (value T, found bool, err error) {
	data, err := p.Get(ctx, key)
	if err != nil {
		return value, false, err
	}
	if data == nil {
		return value, false, nil
	}
	if err := json.Unmarshal(data, &value); err != nil {
		return value, false, fmt.Errorf("decode %q: %w", key, err)
	}
	return value, true, nil
}

// PutJSON encodes v and stores it under key.
func PutJSON(ctx context.Context, p Port, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return p.Put(ctx, key, data)
}
