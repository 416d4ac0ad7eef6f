package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8787", cfg.Server.Listen)
	assert.Equal(t, "file", cfg.Storage.Mode)
	assert.Equal(t, "data/watchlist.json", cfg.Storage.FilePath)
	assert.Equal(t, "local", cfg.Storage.Owner)
	assert.Equal(t, "yahoo", cfg.Quote.Source)
	assert.Equal(t, 10, cfg.Quote.TimeoutSeconds)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  listen: ":9000"
storage:
  mode: sqlite
  owner: alice
quote:
  timeout_seconds: 3
`), 0644))

	t.Setenv("WATCHLIST_OWNER", "bob")
	t.Setenv("QUOTE_TIMEOUT_SECONDS", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Listen)
	assert.Equal(t, "sqlite", cfg.Storage.Mode)
	assert.Equal(t, "bob", cfg.Storage.Owner, "env beats file")
	assert.Equal(t, 7, cfg.Quote.TimeoutSeconds)
}

func TestValidate(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	cfg.Storage.Mode = "redis"
	assert.Error(t, cfg.Validate())
	cfg.Storage.Mode = "sqlite"
	assert.NoError(t, cfg.Validate())

	cfg.Quote.Source = "bloomberg"
	assert.Error(t, cfg.Validate())
	cfg.Quote.Source = "mock"
	assert.NoError(t, cfg.Validate())

	cfg.Telegram.BotToken = "token"
	assert.Error(t, cfg.Validate(), "chat_id required with bot_token")
	cfg.Telegram.ChatID = "42"
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not: valid"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}
