package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sfbulk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
auth:
  username: user@example.com
  password: hunter2
  security_token: TOKEN
  sandbox: true
api:
  version: "48.0"
  batch_size: 2000
poll:
  timeout: 30m
  interval: 15s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "user@example.com", cfg.Auth.Username)
	assert.True(t, cfg.Auth.Sandbox)
	assert.Equal(t, "48.0", cfg.API.Version)
	assert.Equal(t, 2000, cfg.API.BatchSize)
	assert.Equal(t, 30*time.Minute, cfg.Poll.Timeout)
	assert.Equal(t, 15*time.Second, cfg.Poll.Interval)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
auth:
  username: file-user
  password: file-pass
`)

	t.Setenv("SFDC_USERNAME", "env-user")
	t.Setenv("SFDC_SECURITY_TOKEN", "env-token")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-user", cfg.Auth.Username)
	assert.Equal(t, "file-pass", cfg.Auth.Password)
	assert.Equal(t, "env-token", cfg.Auth.SecurityToken)
}

func TestEnvOnly(t *testing.T) {
	t.Setenv("SFDC_USERNAME", "env-user")
	t.Setenv("SFDC_PASSWORD", "env-pass")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env-user", cfg.Auth.Username)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestMissingCredentials(t *testing.T) {
	t.Setenv("SFDC_USERNAME", "")
	t.Setenv("SFDC_PASSWORD", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SFDC_USERNAME")
	assert.Contains(t, err.Error(), "SFDC_PASSWORD")
}

func TestMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
