// Package storage is the remote object-storage surface for photo binaries:
// uploads, batched removal, and time-limited signed read URLs for private
// objects.
package storage

import (
	"context"
	"path"
	"time"
)

// ObjectStorage is the consumed object-storage contract.
type ObjectStorage interface {
	// Upload stores data under path.
	Upload(ctx context.Context, path string, data []byte) error

	// Remove deletes the given object paths in one call.
	Remove(ctx context.Context, paths []string) error

	// CreateSignedURL returns a time-limited read URL for a private object.
	CreateSignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}

// PhotoPath derives the storage key for a photo from its owning item and
// its own identifier. The photo identifier is permanent from the moment of
// capture, so the key never changes; only the item segment can be
// reconciled, which keys written before reconciliation tolerate because
// the photo segment alone is unique.
func PhotoPath(itemID, photoID string) string {
	return path.Join("items", itemID, photoID)
}
