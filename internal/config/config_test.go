package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	for _, key := range []string{"SERVER_PORT", "PORT", "CACHE_TTL", "REFRESH_INTERVAL", "UPSTREAM_CONCURRENCY", "HISTORY_DB_PATH"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := NewConfig()

	assert.Equal(t, "5001", cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 45*time.Second, cfg.Refresher.Interval)
	assert.Less(t, cfg.Refresher.Interval, cfg.Cache.TTL)
	assert.Equal(t, 4, cfg.Workers.StatusCount)
	assert.Equal(t, "status_history.db", cfg.History.DBPath)
	assert.Equal(t, 1, cfg.ContentAPI.MaxAttempts)
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	os.Unsetenv("SERVER_PORT")
	t.Setenv("PORT", "9000")
	t.Setenv("CACHE_TTL", "0")
	t.Setenv("REFRESH_INTERVAL", "90s")
	t.Setenv("UPSTREAM_CONCURRENCY", "8")
	t.Setenv("UPSTREAM_RETRY_DELAY", "not-a-duration")
	t.Setenv("HISTORY_DB_PATH", "")

	cfg := NewConfig()

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Zero(t, cfg.Cache.TTL)
	assert.Equal(t, 90*time.Second, cfg.Refresher.Interval)
	assert.Equal(t, 8, cfg.Workers.StatusCount)
	assert.Equal(t, 500*time.Millisecond, cfg.ContentAPI.RetryDelay)
	assert.Empty(t, cfg.History.DBPath)
}

func TestCredentials(t *testing.T) {
	api := ContentAPI{ServiceAccountJSON: `{"type":"service_account"}`}
	data, err := api.Credentials()
	require.NoError(t, err)
	assert.Equal(t, `{"type":"service_account"}`, string(data))

	path := filepath.Join(t.TempDir(), "sa.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"from":"file"}`), 0o600))
	api = ContentAPI{ServiceAccountFile: path}
	data, err = api.Credentials()
	require.NoError(t, err)
	assert.Equal(t, `{"from":"file"}`, string(data))

	api = ContentAPI{ServiceAccountFile: filepath.Join(t.TempDir(), "missing.json")}
	_, err = api.Credentials()
	require.Error(t, err)

	_, err = (&ContentAPI{}).Credentials()
	require.Error(t, err)
}
