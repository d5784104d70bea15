package mutations

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/lotbook/lotbook/internal/common"
	"github.com/lotbook/lotbook/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE pending_mutations (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  table_name TEXT NOT NULL,
  record_id TEXT NOT NULL,
  op TEXT NOT NULL,
  payload BLOB,
  enqueued_at TIMESTAMP NOT NULL,
  UNIQUE (table_name, record_id)
);
`)
	require.NoError(t, err)

	return db
}

func mutation(table, id string, op models.Operation, payload string) *models.PendingMutation {
	return &models.PendingMutation{
		Table:      table,
		RecordID:   id,
		Op:         op,
		Payload:    json.RawMessage(payload),
		EnqueuedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestEnqueue_FIFOOrder(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Enqueue(ctx, mutation("items", "a", models.OpCreate, `{"n":1}`)))
	require.NoError(t, r.Enqueue(ctx, mutation("items", "b", models.OpCreate, `{"n":2}`)))
	require.NoError(t, r.Enqueue(ctx, mutation("photos", "c", models.OpDelete, `{}`)))

	all, err := r.GetAllOrdered(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].RecordID)
	assert.Equal(t, "b", all[1].RecordID)
	assert.Equal(t, "c", all[2].RecordID)
}

func TestEnqueue_CollapsesUpdates(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Enqueue(ctx, mutation("items", "x", models.OpUpdate, `{"name":"old"}`)))
	require.NoError(t, r.Enqueue(ctx, mutation("items", "x", models.OpUpdate, `{"name":"new"}`)))

	all, err := r.GetAllOrdered(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, models.OpUpdate, all[0].Op)
	assert.JSONEq(t, `{"name":"new"}`, string(all[0].Payload))
}

func TestEnqueue_DeleteCancelsPendingCreate(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Enqueue(ctx, mutation("items", "x", models.OpCreate, `{"n":1}`)))
	require.NoError(t, r.Enqueue(ctx, mutation("items", "x", models.OpDelete, ``)))

	all, err := r.GetAllOrdered(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestEnqueue_UpdateAfterCreateStaysCreate(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Enqueue(ctx, mutation("items", "x", models.OpCreate, `{"name":"old"}`)))
	require.NoError(t, r.Enqueue(ctx, mutation("items", "x", models.OpUpdate, `{"name":"new"}`)))

	got, err := r.GetByRecord(ctx, "items", "x")
	require.NoError(t, err)
	assert.Equal(t, models.OpCreate, got.Op)
	assert.JSONEq(t, `{"name":"new"}`, string(got.Payload))
}

func TestEnqueue_DeleteSupersedesUpdate(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Enqueue(ctx, mutation("items", "x", models.OpUpdate, `{"name":"old"}`)))
	require.NoError(t, r.Enqueue(ctx, mutation("items", "x", models.OpDelete, ``)))

	got, err := r.GetByRecord(ctx, "items", "x")
	require.NoError(t, err)
	assert.Equal(t, models.OpDelete, got.Op)
}

func TestAck_RemovesEntry(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Enqueue(ctx, mutation("items", "x", models.OpUpdate, `{}`)))
	all, err := r.GetAllOrdered(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	require.NoError(t, r.Ack(ctx, all[0].Seq))

	_, err = r.GetByRecord(ctx, "items", "x")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestAck_SupersededSeqIsNoOp(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Enqueue(ctx, mutation("items", "x", models.OpUpdate, `{"v":1}`)))
	all, err := r.GetAllOrdered(ctx)
	require.NoError(t, err)
	oldSeq := all[0].Seq

	// a newer mutation arrives while the old one is in flight
	require.NoError(t, r.Enqueue(ctx, mutation("items", "x", models.OpUpdate, `{"v":2}`)))

	require.NoError(t, r.Ack(ctx, oldSeq))

	got, err := r.GetByRecord(ctx, "items", "x")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(got.Payload))
}

func TestGetAllOrdered_SurvivesUnacknowledgedDrain(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Enqueue(ctx, mutation("items", "x", models.OpCreate, `{}`)))

	// draining without an ack must leave the entry queued
	first, err := r.GetAllOrdered(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := r.GetAllOrdered(ctx)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].Seq, second[0].Seq)
}
