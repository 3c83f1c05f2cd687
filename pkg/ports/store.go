package ports

import (
	"context"
	"time"
)

// RecordStore is the raw key-value surface the persistence service needs.
// Values are opaque encoded records; keys are fully qualified (namespace included).
type RecordStore interface {
	// Get returns the value stored under key.
	// Returns domain.ErrRecordNotFound if the key does not exist (or has expired).
	Get(ctx context.Context, key string) ([]byte, error)

	// Set replaces the value under key and (re)arms its expiry in one step.
	// A ttl of 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether the key is currently present.
	Exists(ctx context.Context, key string) (bool, error)

	// Keys returns every key starting with prefix, in store-defined order.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Backend is a RecordStore whose availability can change over time.
type Backend interface {
	RecordStore

	// IsReady reports whether the store can currently serve requests.
	// It must be cheap: callers evaluate it on every operation.
	IsReady() bool
}
