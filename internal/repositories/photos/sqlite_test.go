package photos

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
CREATE TABLE photos (
  id TEXT PRIMARY KEY,
  item_id TEXT NOT NULL,
  remote_path TEXT NOT NULL DEFAULT '',
  is_primary INTEGER NOT NULL DEFAULT 0,
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL,
  sync_status TEXT NOT NULL DEFAULT 'pending'
);
`)
	require.NoError(t, err)

	return db
}

func testPhoto(id, itemID string, primary bool, created time.Time) *models.Photo {
	return &models.Photo{
		ID:         id,
		ItemID:     itemID,
		IsPrimary:  primary,
		CreatedAt:  created,
		UpdatedAt:  created,
		SyncStatus: models.SyncPending,
	}
}

func TestUpsert_AndGet(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, r.Upsert(ctx, testPhoto("p1", "i1", true, now)))

	got, err := r.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "i1", got.ItemID)
	assert.True(t, got.IsPrimary)
	assert.Equal(t, models.SyncPending, got.SyncStatus)
}

func TestGetByID_NotFound(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)

	_, err := r.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSetPrimary_ExactlyOne(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, r.Upsert(ctx, testPhoto("p1", "i1", true, now)))
	require.NoError(t, r.Upsert(ctx, testPhoto("p2", "i1", false, now.Add(time.Second))))
	require.NoError(t, r.Upsert(ctx, testPhoto("p3", "i1", false, now.Add(2*time.Second))))

	stamp := now.Add(time.Minute)
	require.NoError(t, r.SetPrimary(ctx, "i1", "p3", stamp))

	all, err := r.GetAllByItem(ctx, "i1")
	require.NoError(t, err)
	require.Len(t, all, 3)

	var primaries []string
	for _, p := range all {
		if p.IsPrimary {
			primaries = append(primaries, p.ID)
		}
		switch p.ID {
		case "p1", "p3": // flag changed on both
			assert.Equal(t, stamp, p.UpdatedAt.UTC())
		case "p2":
			assert.Equal(t, now.Add(time.Second), p.UpdatedAt.UTC(), "untouched sibling keeps its timestamp")
		}
	}
	assert.Equal(t, []string{"p3"}, primaries)
}

func TestSetPrimary_UnknownPhotoFails(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, r.Upsert(ctx, testPhoto("p1", "i1", true, now)))

	assert.Error(t, r.SetPrimary(ctx, "i1", "absent", now.Add(time.Minute)))
}

func TestReassignItem_MovesAllPhotos(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	tempID := models.NewTemporaryID()
	require.NoError(t, r.Upsert(ctx, testPhoto("p1", tempID, true, now)))
	require.NoError(t, r.Upsert(ctx, testPhoto("p2", tempID, false, now)))

	require.NoError(t, r.ReassignItem(ctx, tempID, "perm-uuid"))

	moved, err := r.GetAllByItem(ctx, "perm-uuid")
	require.NoError(t, err)
	assert.Len(t, moved, 2)

	old, err := r.GetAllByItem(ctx, tempID)
	require.NoError(t, err)
	assert.Empty(t, old)
}

func TestMarkSynced_RecordsRemotePath(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, r.Upsert(ctx, testPhoto("p1", "i1", true, now)))

	require.NoError(t, r.MarkSynced(ctx, "p1", "items/i1/p1"))

	got, err := r.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "items/i1/p1", got.RemotePath)
	assert.Equal(t, models.SyncSynced, got.SyncStatus)

	pending, err := r.GetAllPendingUpload(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestGetAllPendingUpload(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, r.Upsert(ctx, testPhoto("p1", "i1", true, now)))
	require.NoError(t, r.Upsert(ctx, testPhoto("p2", "i2", true, now)))
	require.NoError(t, r.MarkSynced(ctx, "p2", "items/i2/p2"))

	pending, err := r.GetAllPendingUpload(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "p1", pending[0].ID)
}
