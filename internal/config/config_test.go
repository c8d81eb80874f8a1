package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, DefaultAPIBaseURL, cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, "openai/gpt-4", cfg.API.DefaultModel)
	assert.Equal(t, 6*time.Second, cfg.UI.NotificationDuration)
}

func TestLoad_YAMLThenEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "memoria.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  backend: file
  dir: /tmp/memoria-state
  poll_interval: 500ms
api:
  base_url: http://assistant.local/api
  timeout: 10s
ui:
  notification_duration: 3s
log:
  format: json
`), 0o644))

	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("MEMORIA_DEFAULT_MODEL=anthropic/claude-3-haiku\n"), 0o644))
	t.Setenv("MEMORIA_API_TIMEOUT", "45s")
	// registers cleanup for the variable the .env file is about to set
	t.Setenv("MEMORIA_DEFAULT_MODEL", "")
	os.Unsetenv("MEMORIA_DEFAULT_MODEL")

	cfg, err := Load(path, envPath)
	require.NoError(t, err)

	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.Equal(t, "/tmp/memoria-state", cfg.Storage.Dir)
	assert.Equal(t, 500*time.Millisecond, cfg.Storage.PollInterval)
	assert.Equal(t, "http://assistant.local/api", cfg.API.BaseURL)
	assert.Equal(t, 45*time.Second, cfg.API.Timeout)
	assert.Equal(t, "anthropic/claude-3-haiku", cfg.API.DefaultModel)
	assert.Equal(t, 3*time.Second, cfg.UI.NotificationDuration)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "reading config")
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("MEMORIA_STORAGE_BACKEND", "redis")
	_, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "storage backend must be")

	t.Setenv("MEMORIA_STORAGE_BACKEND", "memory")
	t.Setenv("MEMORIA_API_TIMEOUT", "soon")
	_, err = Load("", filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "MEMORIA_API_TIMEOUT")
}

func TestApplyEnv_ParsesBoolAndDurations(t *testing.T) {
	env := map[string]string{
		"MEMORIA_SECRETS_IN_KEYRING":    "true",
		"MEMORIA_POLL_INTERVAL":         "0s",
		"MEMORIA_NOTIFICATION_DURATION": "1500ms",
	}
	cfg := Default()
	require.NoError(t, applyEnv(cfg, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))

	assert.True(t, cfg.Storage.SecretsInKeyring)
	assert.Equal(t, time.Duration(0), cfg.Storage.PollInterval)
	assert.Equal(t, 1500*time.Millisecond, cfg.UI.NotificationDuration)

	env["MEMORIA_SECRETS_IN_KEYRING"] = "maybe"
	assert.Error(t, applyEnv(Default(), func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))
}
