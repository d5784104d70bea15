package blobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lotbook/lotbook/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Save(ctx context.Context, photoID string, data []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO photo_blobs (photo_id, data) VALUES (?, ?)
		ON CONFLICT(photo_id) DO UPDATE SET data = excluded.data
	`, photoID, data)
	if err != nil {
		return fmt.Errorf("failed to save blob[%s]: %w", photoID, err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, photoID string) ([]byte, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT data FROM photo_blobs WHERE photo_id = ?`, photoID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blob[%s]: %w", photoID, err)
	}
	return data, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, photoID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM photo_blobs WHERE photo_id = ?`, photoID)
	if err != nil {
		return fmt.Errorf("failed to delete blob[%s]: %w", photoID, err)
	}
	return nil
}
