package mutations

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lotbook/lotbook/internal/common"
	"github.com/lotbook/lotbook/internal/dbx"
	"github.com/lotbook/lotbook/internal/models"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
// Enqueue issues multiple statements; callers wanting atomicity run it inside
// dbx.WithTx.
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Enqueue(ctx context.Context, m *models.PendingMutation) error {
	existing, err := r.GetByRecord(ctx, m.Table, m.RecordID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return err
	}

	op := m.Op
	if existing != nil {
		if existing.Op == models.OpCreate && m.Op == models.OpDelete {
			// the record never reached the remote store: cancel both
			_, err := r.db.ExecContext(ctx,
				`delete from pending_mutations where seq=?`, existing.Seq)
			if err != nil {
				return fmt.Errorf("failed to cancel pending create: %w", err)
			}
			return nil
		}
		if existing.Op == models.OpCreate && m.Op == models.OpUpdate {
			op = models.OpCreate
		}
		if _, err := r.db.ExecContext(ctx,
			`delete from pending_mutations where seq=?`, existing.Seq); err != nil {
			return fmt.Errorf("failed to supersede mutation: %w", err)
		}
	}

	query := `INSERT INTO pending_mutations (table_name, record_id, op, payload, enqueued_at)
			values (?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query, m.Table, m.RecordID, op, []byte(m.Payload), m.EnqueuedAt)
	if err != nil {
		return fmt.Errorf("failed to enqueue mutation: %w", err)
	}
	return nil
}

const mutationColumns = `seq, table_name, record_id, op, payload, enqueued_at`

func scanMutation(row interface{ Scan(...any) error }, m *models.PendingMutation) error {
	var payload []byte
	if err := row.Scan(&m.Seq, &m.Table, &m.RecordID, &m.Op, &payload, &m.EnqueuedAt); err != nil {
		return err
	}
	m.Payload = payload
	return nil
}

func (r *SQLiteRepository) GetByRecord(ctx context.Context, table, recordID string) (*models.PendingMutation, error) {
	query := `select ` + mutationColumns + ` from pending_mutations where table_name=? and record_id=?`
	row := r.db.QueryRowContext(ctx, query, table, recordID)

	m := &models.PendingMutation{}
	if err := scanMutation(row, m); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) GetAllOrdered(ctx context.Context) ([]models.PendingMutation, error) {
	query := `select ` + mutationColumns + ` from pending_mutations order by seq`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select mutations: %w", err)
	}
	defer rows.Close()

	var result []models.PendingMutation
	for rows.Next() {
		var m models.PendingMutation
		if err := scanMutation(rows, &m); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Ack(ctx context.Context, seq int64) error {
	if _, err := r.db.ExecContext(ctx, `delete from pending_mutations where seq=?`, seq); err != nil {
		return fmt.Errorf("failed to ack mutation: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RewriteRecordID(ctx context.Context, table, oldID, newID string) error {
	_, err := r.db.ExecContext(ctx,
		`update pending_mutations set record_id=? where table_name=? and record_id=?`,
		newID, table, oldID)
	if err != nil {
		return fmt.Errorf("failed to rewrite mutation record id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdatePayload(ctx context.Context, seq int64, payload json.RawMessage) error {
	_, err := r.db.ExecContext(ctx,
		`update pending_mutations set payload=? where seq=?`, []byte(payload), seq)
	if err != nil {
		return fmt.Errorf("failed to update mutation payload: %w", err)
	}
	return nil
}
