// Package metadata is a small key/value store for sync bookkeeping, such as
// the last successful sync timestamp per sale.
package metadata

import "context"

// Repository persists opaque key/value pairs.
type Repository interface {
	// Get returns the value for key, or nil when absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores or replaces the value for key.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
