package blobs

import (
	"context"
	"database/sql"
	"testing"

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
CREATE TABLE photo_blobs (
  photo_id TEXT PRIMARY KEY,
  data BLOB NOT NULL
);
`)
	require.NoError(t, err)

	return db
}

func TestSaveAndGet(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	payload := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10}
	require.NoError(t, r.Save(ctx, "p1", payload))

	got, err := r.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestSave_ReplacesExisting(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Save(ctx, "p1", []byte("v1")))
	require.NoError(t, r.Save(ctx, "p1", []byte("v2")))

	got, err := r.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

func TestGet_AbsentReturnsNil(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)

	got, err := r.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDelete(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Save(ctx, "p1", []byte("v1")))
	require.NoError(t, r.Delete(ctx, "p1"))

	got, err := r.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, got)

	// deleting again is not an error
	require.NoError(t, r.Delete(ctx, "p1"))
}
