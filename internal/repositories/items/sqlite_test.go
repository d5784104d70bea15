package items

import (
	"context"
	"database/sql"
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
CREATE TABLE items (
  id TEXT PRIMARY KEY,
  sale_id TEXT NOT NULL,
  number INTEGER NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  start_price REAL NOT NULL DEFAULT 0,
  reserve_price REAL NOT NULL DEFAULT 0,
  dimensions TEXT NOT NULL DEFAULT '',
  provenance TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL,
  sync_status TEXT NOT NULL DEFAULT 'pending'
);
`)
	require.NoError(t, err)

	return db
}

func testItem(id, saleID string, number int64, updated time.Time) *models.CatalogItem {
	return &models.CatalogItem{
		ID:         id,
		SaleID:     saleID,
		Number:     number,
		Name:       "Oak Table",
		CreatedAt:  updated,
		UpdatedAt:  updated,
		SyncStatus: models.SyncPending,
	}
}

func TestUpsert_InsertAndUpdate(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, r.Upsert(ctx, testItem("id1", "s1", 1, now)))

	updated := testItem("id1", "s1", 1, now.Add(time.Minute))
	updated.Name = "Oak Dining Table"
	require.NoError(t, r.Upsert(ctx, updated))

	got, err := r.GetByID(ctx, "id1")
	require.NoError(t, err)
	assert.Equal(t, "Oak Dining Table", got.Name)
}

func TestUpsert_Idempotent(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	item := testItem("id1", "s1", 1, now)
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Upsert(ctx, item))
	}

	got, err := r.GetByID(ctx, "id1")
	require.NoError(t, err)
	assert.Equal(t, item.Name, got.Name)
	assert.Equal(t, item.Number, got.Number)

	all, err := r.GetAllBySale(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpsert_LastWriteWinsByUpdatedAt(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)

	newer := testItem("id1", "s1", 1, now.Add(time.Hour))
	newer.Name = "newer"
	require.NoError(t, r.Upsert(ctx, newer))

	// a stale payload arriving later must not clobber the newer row
	stale := testItem("id1", "s1", 1, now)
	stale.Name = "stale"
	require.NoError(t, r.Upsert(ctx, stale))

	got, err := r.GetByID(ctx, "id1")
	require.NoError(t, err)
	assert.Equal(t, "newer", got.Name)
}

func TestGetByID_NotFound(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)

	_, err := r.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetAllBySale_OrderedByNumber(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, r.Upsert(ctx, testItem("id2", "s1", 2, now)))
	require.NoError(t, r.Upsert(ctx, testItem("id1", "s1", 1, now)))
	require.NoError(t, r.Upsert(ctx, testItem("id3", "s2", 1, now)))

	got, err := r.GetAllBySale(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "id1", got[0].ID)
	assert.Equal(t, "id2", got[1].ID)
}

func TestRekey_SubstitutesIdentifierAndNumber(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	tempID := models.NewTemporaryID()
	require.NoError(t, r.Upsert(ctx, testItem(tempID, "s1", models.NewTemporaryNumber(), now)))

	require.NoError(t, r.Rekey(ctx, tempID, "perm-uuid", 7))

	_, err := r.GetByID(ctx, tempID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	got, err := r.GetByID(ctx, "perm-uuid")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.Number)
	assert.Equal(t, models.SyncSynced, got.SyncStatus)
	assert.Equal(t, "Oak Table", got.Name)
}

func TestRekey_MissingRowFails(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)

	err := r.Rekey(context.Background(), "absent", "perm", 1)
	assert.Error(t, err)
}
