package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultIsValid(t *testing.T) {
	cfg := NewDefault()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "INFO", cfg.Global.LogLevel)
	assert.Equal(t, "fusevfs", cfg.Mount.FSName)
	assert.Equal(t, -1, cfg.Mount.UID)
	assert.Equal(t, -1, cfg.Mount.GID)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Configuration)
		wantErr string
	}{
		{
			name:    "invalid log level",
			mutate:  func(c *Configuration) { c.Global.LogLevel = "TRACE" },
			wantErr: "log_level",
		},
		{
			name:    "empty fsname",
			mutate:  func(c *Configuration) { c.Mount.FSName = "" },
			wantErr: "fsname",
		},
		{
			name: "bad metrics port",
			mutate: func(c *Configuration) {
				c.Metrics.Enabled = true
				c.Metrics.Port = 0
			},
			wantErr: "metrics port",
		},
		{
			name: "bad metrics path",
			mutate: func(c *Configuration) {
				c.Metrics.Enabled = true
				c.Metrics.Path = "metrics"
			},
			wantErr: "metrics path",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefault()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
global:
  log_level: DEBUG
  debug: true
mount:
  fsname: archive
  read_only: true
metrics:
  enabled: true
  port: 9090
  path: /metrics
`), 0o644))

	cfg := NewDefault()
	require.NoError(t, cfg.LoadFromFile(path))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "DEBUG", cfg.Global.LogLevel)
	assert.True(t, cfg.Global.Debug)
	assert.Equal(t, "archive", cfg.Mount.FSName)
	assert.True(t, cfg.Mount.ReadOnly)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9090, cfg.Metrics.Port)
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := NewDefault()
	assert.Error(t, cfg.LoadFromFile("/no/such/config.yaml"))
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FUSEVFS_LOG_LEVEL", "WARN")
	t.Setenv("FUSEVFS_READ_ONLY", "true")
	t.Setenv("FUSEVFS_METRICS_ENABLED", "true")
	t.Setenv("FUSEVFS_METRICS_PORT", "9191")

	cfg := NewDefault()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "WARN", cfg.Global.LogLevel)
	assert.True(t, cfg.Mount.ReadOnly)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9191, cfg.Metrics.Port)
}
