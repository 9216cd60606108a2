package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/streamagent/streamchat-go/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STREAMCHAT_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("STREAMCHAT_SERVER_URL", "")
	t.Setenv("STREAMCHAT_LOG_LEVEL", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.ServerURL)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server_url: https://chat.example.com
model: gemini-2.0-flash
log_level: debug
api_keys:
  BRIGHT_DATA_API_KEY: bd-123
`), 0600))

	t.Setenv("STREAMCHAT_CONFIG", path)
	t.Setenv("STREAMCHAT_SERVER_URL", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "https://chat.example.com", cfg.ServerURL)
	assert.Equal(t, "gemini-2.0-flash", cfg.Model)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "bd-123", cfg.APIKeys["BRIGHT_DATA_API_KEY"])
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server_url: https://file.example.com\n"), 0600))

	t.Setenv("STREAMCHAT_CONFIG", path)
	t.Setenv("STREAMCHAT_SERVER_URL", "https://env.example.com")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.ServerURL)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server_url: [broken\n"), 0600))

	t.Setenv("STREAMCHAT_CONFIG", path)

	_, err := config.Load()
	assert.Error(t, err)
}
