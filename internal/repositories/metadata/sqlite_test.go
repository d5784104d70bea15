package metadata

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
CREATE TABLE metadata (
  key TEXT PRIMARY KEY,
  value BLOB
);
`)
	require.NoError(t, err)

	return db
}

func TestSetGetDelete(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	got, err := r.Get(ctx, "last_sync:s1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, r.Set(ctx, "last_sync:s1", []byte("2026-08-29T10:00:00Z")))

	got, err = r.Get(ctx, "last_sync:s1")
	require.NoError(t, err)
	assert.Equal(t, []byte("2026-08-29T10:00:00Z"), got)

	require.NoError(t, r.Set(ctx, "last_sync:s1", []byte("2026-08-29T11:00:00Z")))
	got, err = r.Get(ctx, "last_sync:s1")
	require.NoError(t, err)
	assert.Equal(t, []byte("2026-08-29T11:00:00Z"), got)

	require.NoError(t, r.Delete(ctx, "last_sync:s1"))
	got, err = r.Get(ctx, "last_sync:s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
