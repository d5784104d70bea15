package items

import (
	"context"

	"github.com/lotbook/lotbook/internal/models"
)

// Repository describes CRUD and query operations for CatalogItem records.
// Implementations are typically backed by a local SQLite database.
type Repository interface {
	// Upsert inserts or updates an item by id. The write is last-write-wins
	// keyed by the record's own UpdatedAt field, not by call order, so
	// replaying the same payload is idempotent.
	Upsert(ctx context.Context, item *models.CatalogItem) error

	// GetByID returns an item by its identifier.
	GetByID(ctx context.Context, id string) (*models.CatalogItem, error)

	// GetAllBySale lists all items belonging to a sale, ordered by display
	// sequence number.
	GetAllBySale(ctx context.Context, saleID string) ([]models.CatalogItem, error)

	// DeleteByID removes an item from the cache.
	DeleteByID(ctx context.Context, id string) error

	// Rekey moves an item from a temporary identifier to its permanent one,
	// applying the permanent display number at the same time.
	Rekey(ctx context.Context, oldID, newID string, number int64) error
}
