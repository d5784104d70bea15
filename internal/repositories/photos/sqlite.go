package photos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

const photoColumns = `id, item_id, remote_path, is_primary, created_at, updated_at, sync_status`

func (r *SQLiteRepository) Upsert(ctx context.Context, p *models.Photo) error {
	query := ` INSERT INTO photos (id, item_id, remote_path, is_primary, created_at, updated_at, sync_status)
			values (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET item_id = excluded.item_id,
				remote_path = excluded.remote_path,
				is_primary = excluded.is_primary,
				created_at = excluded.created_at,
				updated_at = excluded.updated_at,
				sync_status = excluded.sync_status
			WHERE excluded.updated_at >= photos.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.ItemID, p.RemotePath, p.IsPrimary, p.CreatedAt, p.UpdatedAt, p.SyncStatus)
	if err != nil {
		return fmt.Errorf("failed to upsert photo: %w", err)
	}
	return nil
}

func scanPhoto(row interface{ Scan(...any) error }, p *models.Photo) error {
	return row.Scan(&p.ID, &p.ItemID, &p.RemotePath, &p.IsPrimary, &p.CreatedAt, &p.UpdatedAt, &p.SyncStatus)
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Photo, error) {
	query := `select ` + photoColumns + ` from photos where id=?`
	row := r.db.QueryRowContext(ctx, query, id)

	p := &models.Photo{}
	if err := scanPhoto(row, p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) GetAllByItem(ctx context.Context, itemID string) ([]models.Photo, error) {
	query := `select ` + photoColumns + ` from photos where item_id=? order by is_primary desc, created_at`
	rows, err := r.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to select photos: %w", err)
	}
	defer rows.Close()

	var result []models.Photo
	for rows.Next() {
		var p models.Photo
		if err := scanPhoto(rows, &p); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `delete from photos where id=?`, id); err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	return nil
}

// SetPrimary clears the primary flag on siblings before setting it on the
// target photo, stamping updatedAt on every row whose flag changed so the
// designation wins the last-write-wins upsert against older remote copies.
// Callers run it inside dbx.WithTx; both statements share the same DBTX.
func (r *SQLiteRepository) SetPrimary(ctx context.Context, itemID, photoID string, updatedAt time.Time) error {
	if _, err := r.db.ExecContext(ctx,
		`update photos set is_primary=0, updated_at=? where item_id=? and id<>? and is_primary=1`,
		updatedAt, itemID, photoID); err != nil {
		return fmt.Errorf("failed to clear primary flags: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`update photos set is_primary=1, updated_at=? where id=? and item_id=?`, updatedAt, photoID, itemID)
	if err != nil {
		return fmt.Errorf("failed to set primary flag: %w", err)
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

func (r *SQLiteRepository) ReassignItem(ctx context.Context, oldItemID, newItemID string) error {
	if _, err := r.db.ExecContext(ctx,
		`update photos set item_id=? where item_id=?`, newItemID, oldItemID); err != nil {
		return fmt.Errorf("failed to reassign photos: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id, remotePath string) error {
	res, err := r.db.ExecContext(ctx,
		`update photos set remote_path=?, sync_status=? where id=?`, remotePath, models.SyncSynced, id)
	if err != nil {
		return fmt.Errorf("failed to mark photo synced: %w", err)
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

func (r *SQLiteRepository) GetAllPendingUpload(ctx context.Context) ([]models.Photo, error) {
	query := `select ` + photoColumns + ` from photos where sync_status=?`
	rows, err := r.db.QueryContext(ctx, query, models.SyncPending)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending photos: %w", err)
	}
	defer rows.Close()

	var result []models.Photo
	for rows.Next() {
		var p models.Photo
		if err := scanPhoto(rows, &p); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
