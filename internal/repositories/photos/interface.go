package photos

import (
	"context"
	"time"

	"github.com/lotbook/lotbook/internal/models"
)

// Repository describes CRUD and query operations for Photo metadata records.
type Repository interface {
	// Upsert inserts or updates a photo by id, last-write-wins keyed by the
	// record's UpdatedAt field.
	Upsert(ctx context.Context, photo *models.Photo) error

	// GetByID returns a photo by its identifier.
	GetByID(ctx context.Context, id string) (*models.Photo, error)

	// GetAllByItem lists photos of an item, primary first.
	GetAllByItem(ctx context.Context, itemID string) ([]models.Photo, error)

	// DeleteByID removes a photo record.
	DeleteByID(ctx context.Context, id string) error

	// SetPrimary marks one photo of an item primary and clears the flag on
	// all siblings, stamping updatedAt on every changed row. Run inside a
	// transaction so no intermediate state with zero or multiple primaries
	// is observable.
	SetPrimary(ctx context.Context, itemID, photoID string, updatedAt time.Time) error

	// ReassignItem moves all photos from one owning item identifier to
	// another (used when a temporary item id is reconciled).
	ReassignItem(ctx context.Context, oldItemID, newItemID string) error

	// MarkSynced records the remote storage path after a successful upload.
	MarkSynced(ctx context.Context, id, remotePath string) error

	// GetAllPendingUpload returns photos whose blobs have not reached remote
	// object storage yet.
	GetAllPendingUpload(ctx context.Context) ([]models.Photo, error)
}
