package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	t.Run("overlays present fields only", func(t *testing.T) {
		path := writeTempJSON(t, "", "", map[string]any{
			"remote_base_url": "https://api.example",
			"probe_interval":  "5s",
		})

		cfg := &Config{}
		cfg.LoadDefaults()
		require.NoError(t, parseJson(cfg, path))

		assert.Equal(t, "https://api.example", cfg.RemoteBaseURL)
		assert.Equal(t, 5*time.Second, cfg.ProbeInterval)
		assert.Equal(t, 30*time.Second, cfg.SyncTimeout, "absent field keeps default")
	})

	t.Run("duration as integer nanoseconds", func(t *testing.T) {
		path := writeTempJSON(t, "", "", map[string]any{
			"sync_timeout": int64(10 * time.Second),
		})

		cfg := &Config{}
		cfg.LoadDefaults()
		require.NoError(t, parseJson(cfg, path))
		assert.Equal(t, 10*time.Second, cfg.SyncTimeout)
	})

	t.Run("empty path is a no-op", func(t *testing.T) {
		cfg := &Config{RemoteBaseURL: "kept"}
		require.NoError(t, parseJson(cfg, ""))
		assert.Equal(t, "kept", cfg.RemoteBaseURL)
	})

	t.Run("missing file errors", func(t *testing.T) {
		cfg := &Config{}
		assert.Error(t, parseJson(cfg, filepath.Join(t.TempDir(), "absent.json")))
	})

	t.Run("malformed json errors", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

		cfg := &Config{}
		assert.Error(t, parseJson(cfg, path))
	})
}
