package items

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lotbook/lotbook/internal/common"
	"github.com/lotbook/lotbook/internal/dbx"
	"github.com/lotbook/lotbook/internal/models"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Upsert inserts or updates an item by id. On conflict the row is only
// rewritten when the incoming UpdatedAt is not older than the stored one.
func (r *SQLiteRepository) Upsert(ctx context.Context, item *models.CatalogItem) error {
	query := ` INSERT INTO items (id, sale_id, number, name, description, start_price, reserve_price, dimensions, provenance, created_at, updated_at, sync_status)
			values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET sale_id = excluded.sale_id,
				number = excluded.number,
				name = excluded.name,
				description = excluded.description,
				start_price = excluded.start_price,
				reserve_price = excluded.reserve_price,
				dimensions = excluded.dimensions,
				provenance = excluded.provenance,
				created_at = excluded.created_at,
				updated_at = excluded.updated_at,
				sync_status = excluded.sync_status
			WHERE excluded.updated_at >= items.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.SaleID, item.Number, item.Name, item.Description,
		item.StartPrice, item.ReservePrice, item.Dimensions, item.Provenance,
		item.CreatedAt, item.UpdatedAt, item.SyncStatus)
	if err != nil {
		return fmt.Errorf("failed to upsert item: %w", err)
	}
	return nil
}

const itemColumns = `id, sale_id, number, name, description, start_price, reserve_price, dimensions, provenance, created_at, updated_at, sync_status`

func scanItem(row interface{ Scan(...any) error }, item *models.CatalogItem) error {
	return row.Scan(&item.ID, &item.SaleID, &item.Number, &item.Name, &item.Description,
		&item.StartPrice, &item.ReservePrice, &item.Dimensions, &item.Provenance,
		&item.CreatedAt, &item.UpdatedAt, &item.SyncStatus)
}

// GetByID returns a single item or common.ErrNotFound.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.CatalogItem, error) {
	query := `select ` + itemColumns + ` from items where id=?`
	row := r.db.QueryRowContext(ctx, query, id)

	item := &models.CatalogItem{}
	if err := scanItem(row, item); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return item, nil
}

// GetAllBySale lists items of a sale ordered by display number.
func (r *SQLiteRepository) GetAllBySale(ctx context.Context, saleID string) ([]models.CatalogItem, error) {
	query := `select ` + itemColumns + ` from items where sale_id=? order by number`
	rows, err := r.db.QueryContext(ctx, query, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to select items: %w", err)
	}
	defer rows.Close()

	var result []models.CatalogItem
	for rows.Next() {
		var item models.CatalogItem
		if err := scanItem(rows, &item); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteByID removes an item row. Deleting an absent id is not an error.
func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	query := `delete from items where id=?`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

// Rekey substitutes a permanent identifier and display number for temporary
// ones. It expects exactly one row to be affected.
func (r *SQLiteRepository) Rekey(ctx context.Context, oldID, newID string, number int64) error {
	query := `update items set id=?, number=?, sync_status=? where id=?`
	res, err := r.db.ExecContext(ctx, query, newID, number, models.SyncSynced, oldID)
	if err != nil {
		return fmt.Errorf("failed to rekey item: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("wrong rows affected count: %d", ra)
	}
	return nil
}
