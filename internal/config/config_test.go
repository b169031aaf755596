package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"TODO_CONFIG", "TODO_API_URL", "TODO_REQUEST_TIMEOUT", "TODO_PAGE_SIZE",
		"TODO_DEBOUNCE_MS", "TODO_SESSION_FILE", "TODO_RENDER_MODE", "TODO_OVERSCAN",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	t.Run("uses defaults without file or env", func(t *testing.T) {
		clearEnv(t)
		t.Chdir(t.TempDir())

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080", cfg.APIURL)
		assert.Equal(t, 20, cfg.PageSize)
		assert.Equal(t, 400*time.Millisecond, cfg.Debounce)
		assert.Equal(t, "window", cfg.Render.Mode)
		assert.Equal(t, 5, cfg.Render.Overscan)
	})

	t.Run("file overrides defaults and env overrides file", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "todo.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
api_url: http://file:9000
page_size: 50
debounce: 250ms
render:
  mode: append
`), 0644))
		t.Setenv("TODO_PAGE_SIZE", "10")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "http://file:9000", cfg.APIURL)
		assert.Equal(t, 10, cfg.PageSize)
		assert.Equal(t, 250*time.Millisecond, cfg.Debounce)
		assert.Equal(t, "append", cfg.Render.Mode)
	})

	t.Run("debounce from env in milliseconds", func(t *testing.T) {
		clearEnv(t)
		t.Chdir(t.TempDir())
		t.Setenv("TODO_DEBOUNCE_MS", "0")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, time.Duration(0), cfg.Debounce)
	})

	t.Run("rejects unknown render mode", func(t *testing.T) {
		clearEnv(t)
		t.Chdir(t.TempDir())
		t.Setenv("TODO_RENDER_MODE", "carousel")

		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("reports unreadable file", func(t *testing.T) {
		clearEnv(t)
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.ErrorContains(t, err, "failed to read config file")
	})
}

func TestSaveAndReload(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "todo.yaml")

	cfg := Default()
	cfg.APIURL = "http://saved:1234"
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://saved:1234", loaded.APIURL)
}

func TestSessionFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todo", "session.yaml")

	t.Run("missing file is an empty session", func(t *testing.T) {
		state, err := LoadSession(path)
		require.NoError(t, err)
		assert.Empty(t, state.Token)
	})

	t.Run("round trips and removes", func(t *testing.T) {
		require.NoError(t, SaveSession(path, &SessionState{APIURL: "http://x", Token: "tok", RefreshCookie: "r"}))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

		state, err := LoadSession(path)
		require.NoError(t, err)
		assert.Equal(t, "tok", state.Token)
		assert.Equal(t, "r", state.RefreshCookie)

		require.NoError(t, RemoveSession(path))
		require.NoError(t, RemoveSession(path))
	})
}
