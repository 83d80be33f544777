package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Lock.TTL)
	assert.Equal(t, 100*time.Millisecond, cfg.Lock.RetryDelay)
	assert.Equal(t, 20, cfg.Lock.Retries)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, "@every 1m", cfg.Reconcile.Schedule)
}

func TestLoadEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("LOCK_RETRIES", "5")
	t.Setenv("LOCK_TTL", "500ms")
	t.Setenv("REDIS_ADDRESS", "redis:6380")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Lock.Retries)
	assert.Equal(t, 500*time.Millisecond, cfg.Lock.TTL)
	assert.Equal(t, "redis:6380", cfg.Redis.Address)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte("server:\n  port: 9090\nlock:\n  retries: 3\ninstance:\n  id: test-1\n")
	require.NoError(t, os.WriteFile(path, body, 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Lock.Retries)
	assert.Equal(t, "test-1", cfg.Instance.ID)
	assert.Equal(t, 2*time.Second, cfg.Lock.TTL)
}

func TestValidateRejectsBadLockSettings(t *testing.T) {
	cfg := Config{
		Lock:      LockConfig{TTL: 0, Retries: 1},
		Reconcile: ReconcileConfig{BatchSize: 1},
	}
	assert.Error(t, cfg.Validate())

	cfg.Lock.TTL = time.Second
	cfg.Lock.Retries = 0
	assert.Error(t, cfg.Validate())

	cfg.Lock.Retries = 1
	assert.NoError(t, cfg.Validate())
}

// chdir mirrors testing.T.Chdir (Go 1.24) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
