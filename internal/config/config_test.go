// ABOUTME: Tests for configuration loading, env overrides, and persistence.
// ABOUTME: Uses temp XDG directories so the real user config is never touched.

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
	t.Helper()
	for _, key := range []string{"MARKNOTE_DB", "MARKNOTE_USER", "MARKNOTE_LOG_LEVEL", "MARKNOTE_ADDR", "MARKNOTE_CACHE_TTL", "MARKNOTE_FETCH_RPS"} {
		if v, ok := os.LookupEnv(key); ok {
			require.NoError(t, os.Unsetenv(key))
			t.Cleanup(func() { _ = os.Setenv(key, v) })
		}
	}
}

func TestPath(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	assert.Equal(t, filepath.Join(tmpDir, "marknote", "config.yaml"), Path())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultUser, cfg.UserID)
	assert.Equal(t, 10*time.Second, cfg.Metadata.Timeout)
	assert.Equal(t, 24*time.Hour, cfg.Metadata.CacheTTL)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `user_id: harper
log_level: debug
metadata:
  timeout: 3s
  cache_ttl: 1h
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "harper", cfg.UserID)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3*time.Second, cfg.Metadata.Timeout)
	assert.Equal(t, time.Hour, cfg.Metadata.CacheTTL)
	// Unset keys keep their defaults.
	assert.Equal(t, "127.0.0.1:8080", cfg.Addr)
}

func TestLoadInvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("user_id: [unclosed"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("MARKNOTE_DB", "/tmp/other.db")
	t.Setenv("MARKNOTE_USER", "env-user")
	t.Setenv("MARKNOTE_ADDR", ":9999")
	t.Setenv("MARKNOTE_CACHE_TTL", "5m")
	t.Setenv("MARKNOTE_FETCH_RPS", "0.5")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/other.db", cfg.DBPath)
	assert.Equal(t, "env-user", cfg.UserID)
	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Metadata.CacheTTL)
	assert.InDelta(t, 0.5, cfg.Metadata.RequestsPerSecond, 1e-9)
}

func TestEnvOverrideRejectsBadDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("MARKNOTE_CACHE_TTL", "forever")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSaveAndLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.UserID = "saved"
	cfg.Metadata.CacheTTL = 90 * time.Minute
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "saved", loaded.UserID)
	assert.Equal(t, 90*time.Minute, loaded.Metadata.CacheTTL)
}
