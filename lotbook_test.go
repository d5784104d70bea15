package lotbook

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/lotbook/lotbook/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_AssemblesSubsystem(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DataDir = t.TempDir()

	app, err := New(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	assert.NotNil(t, app.Cache)
	assert.NotNil(t, app.Remote)
	assert.NotNil(t, app.Storage)
	assert.NotNil(t, app.Connectivity)
	assert.NotNil(t, app.Sequence)
	assert.NotNil(t, app.Photos)
	assert.NotNil(t, app.Syncer)
	assert.False(t, app.Cache.InMemory())
}

func TestNew_DegradesWhenDataDirUnavailable(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	// a file where a directory is expected forces the in-memory fallback
	blocked := filepath.Join(t.TempDir(), "taken")
	require.NoError(t, os.WriteFile(blocked, []byte("x"), 0o660))
	cfg.DataDir = blocked

	app, err := New(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	assert.True(t, app.Cache.InMemory())
}
