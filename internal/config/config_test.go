package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom("")
	require.NoError(t, err)
	assert.Equal(t, "ticket-tracker", cfg.App.Name)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Autosave.Delay())
	assert.Equal(t, 50, cfg.Undo.MaxHistory)
	assert.Equal(t, 7, cfg.Analytics.Days)
	assert.Equal(t, 5*time.Minute, cfg.Redis.TTL())
}

func TestLoadFromFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
redis:
  enabled: true
  addr: cache:6379
  ttl_seconds: 0
autosave:
  delay_ms: 500
analytics:
  days: 14
  timezone: UTC
`), 0o600))

	t.Setenv("ANALYTICS_DAYS", "30")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Zero(t, cfg.Redis.TTL())
	assert.Equal(t, 500*time.Millisecond, cfg.Autosave.Delay())
	assert.Equal(t, 30, cfg.Analytics.Days)
	assert.Equal(t, time.UTC, cfg.Analytics.Location())
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, 50, cfg.Undo.MaxHistory)
}

func TestLoadFromRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"UNDO_MAX_HISTORY":   "0",
		"ANALYTICS_DAYS":     "-1",
		"ANALYTICS_TIMEZONE": "Mars/Olympus",
		"AUTOSAVE_DELAY_MS":  "-5",
		"REDIS_DB":           "zero",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := LoadFrom("")
			assert.Error(t, err)
		})
	}
}

func TestLoadFromMissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
