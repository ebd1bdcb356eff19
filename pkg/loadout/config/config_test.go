package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modpack-tools/loadout/pkg/loadout/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.DefaultScanWorkers, cfg.Scan.Workers)
	assert.Equal(t, config.DefaultSyncWorkers, cfg.Sync.Workers)
	assert.Equal(t, config.DefaultSyncRetries, cfg.Sync.Retries)
	assert.Equal(t, 10*time.Minute, cfg.Sync.UnitTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "10MB", cfg.Logging.Rotation.MaxSize)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	configDir := filepath.Join(dir, "loadout")
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	content := `
default_profile: main
scan:
  workers: 2
sync:
  workers: 16
  retries: 1
  unit_timeout: 30s
logging:
  level: debug
  components:
    syncer: warn
`
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0o644))

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "main", cfg.DefaultProfile)
	assert.Equal(t, 2, cfg.Scan.Workers)
	assert.Equal(t, 16, cfg.Sync.Workers)
	assert.Equal(t, 1, cfg.Sync.Retries)
	assert.Equal(t, 30*time.Second, cfg.Sync.UnitTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "warn", cfg.Logging.Components["syncer"])
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("LOADOUT_SYNC_WORKERS", "12")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Sync.Workers)
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"", 0, false},
		{"10MB", 10 * 1000 * 1000, false},
		{"64MiB", 64 * 1024 * 1024, false},
		{"bogus", 0, true},
	}
	for _, tt := range tests {
		got, err := config.ParseSize(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestWriteDefaultDoesNotOverwrite(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	require.NoError(t, config.WriteDefault())
	path := filepath.Join(dir, "loadout", "config.yaml")
	require.FileExists(t, path)

	require.NoError(t, os.WriteFile(path, []byte("default_profile: custom\n"), 0o644))
	require.NoError(t, config.WriteDefault())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "default_profile: custom\n", string(data))
}
