package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, BackendBadger, cfg.Storage.Backend)
	assert.Equal(t, SourceFinMind, cfg.Statements.Source)
	assert.Equal(t, 3, cfg.Retry.Attempts)
	assert.Equal(t, time.Hour, cfg.Retry.RateLimitBackoff)
	assert.Equal(t, 3*time.Second, cfg.Sources.MOPS.Interval)
	assert.Equal(t, []string{"console"}, cfg.Logging.Outputs)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  backend: sqlite
  sqlite:
    path: /tmp/file.db
statements:
  source: mops
retry:
  attempts: 5
  backoff: 2s
  rate_limit_fatal: true
sources:
  finmind:
    token: from-file
`), 0o644))

	t.Setenv("FINMIND_API_TOKEN", "from-env")
	t.Setenv("SQLITE_PATH", "/tmp/env.db")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "/tmp/env.db", cfg.Storage.SQLite.Path)
	assert.Equal(t, "from-env", cfg.Sources.FinMind.Token)
	assert.Equal(t, SourceMOPS, cfg.Statements.Source)
	assert.Equal(t, 5, cfg.Retry.Attempts)
	assert.Equal(t, 2*time.Second, cfg.Retry.Backoff)
	assert.True(t, cfg.Retry.RateLimitFatal)
	require.NoError(t, cfg.Validate())
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Storage.Backend = "mongo" }},
		{"postgres without dsn", func(c *Config) { c.Storage.Backend = BackendPostgres }},
		{"unknown source", func(c *Config) { c.Statements.Source = "yahoo" }},
		{"no attempts", func(c *Config) { c.Retry.Attempts = -1 }},
		{"half telegram", func(c *Config) { c.Telegram.BotToken = "token" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
