// Package remote consumes the backend catalog API and defines the contract
// the sync subsystem relies on. Only the surface used here is specified:
// table-style CRUD over items, photos, and sales, filterable by parent
// identifiers, plus a reachability probe.
package remote

import (
	"context"

	"github.com/lotbook/lotbook/internal/models"
)

// Client is the remote catalog API as consumed by the sync subsystem.
// Implementations map transport failures to common.ErrUnavailable, auth
// failures to common.ErrUnauthorized, and rejected writes to
// common.ErrConflict so callers can classify with errors.Is.
//
// The remote store applies writes with upsert semantics, so redelivering a
// mutation after a crash between remote success and local acknowledgment
// is safe.
type Client interface {
	// Ping probes backend reachability. Also used by the connectivity
	// monitor.
	Ping(ctx context.Context) error

	// ListSales returns the sales visible to the authenticated session.
	ListSales(ctx context.Context) ([]models.Sale, error)

	// ListItems returns all items of a sale ordered by display number.
	ListItems(ctx context.Context, saleID string) ([]models.CatalogItem, error)

	// InsertItem creates an item and returns the stored record carrying the
	// server-assigned permanent identifier.
	InsertItem(ctx context.Context, item *models.CatalogItem) (*models.CatalogItem, error)

	// UpdateItem applies an item mutation by identifier.
	UpdateItem(ctx context.Context, item *models.CatalogItem) error

	// DeleteItem removes an item.
	DeleteItem(ctx context.Context, id string) error

	// MaxItemNumber returns the highest permanent display number in a sale,
	// or 0 when the sale has no numbered items. Temporary numbers are never
	// stored remotely and do not participate.
	MaxItemNumber(ctx context.Context, saleID string) (int64, error)

	// ListPhotos returns photo metadata for all items of a sale.
	ListPhotos(ctx context.Context, saleID string) ([]models.Photo, error)

	// InsertPhoto creates a photo metadata record. The identifier is
	// client-assigned and permanent.
	InsertPhoto(ctx context.Context, p *models.Photo) error

	// UpdatePhoto applies a photo mutation by identifier.
	UpdatePhoto(ctx context.Context, p *models.Photo) error

	// DeletePhoto removes a photo metadata record.
	DeletePhoto(ctx context.Context, id string) error
}
