// Package blobs stores photo binary payloads as opaque values keyed by
// photo identifier. The cache owns a blob exclusively until it has been
// uploaded to remote object storage.
package blobs

import "context"

// Repository persists opaque binary payloads.
type Repository interface {
	// Save stores or replaces the payload for a photo identifier.
	Save(ctx context.Context, photoID string, data []byte) error

	// Get returns the payload, or nil (not an error) when absent so callers
	// can fall back to a remote-served reference.
	Get(ctx context.Context, photoID string) ([]byte, error)

	// Delete removes the payload. Deleting an absent id is not an error.
	Delete(ctx context.Context, photoID string) error
}
