// Package kv defines the durable string-keyed store boundary used to persist
// revalidation tokens and the offline sync queue across process restarts.
//
// Snapshots are stored as JSON-encoded strings and reloaded wholesale at
// startup. Persistence through this boundary is best-effort: callers log and
// swallow write failures, keeping the in-memory state authoritative for the
// current session.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound indicates the requested key does not exist in the store.
var ErrNotFound = errors.New("kv: key not found")

// Store is a durable string-keyed store.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
