package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level        string            `mapstructure:"level"`
	Path         string            `mapstructure:"path"`
	ConsoleLevel string            `mapstructure:"console_level"`
	Rotation     RotationConfig    `mapstructure:"rotation"`
	Components   map[string]string `mapstructure:"components"`
}

// ScanConfig configures local folder scanning.
type ScanConfig struct {
	Workers int `mapstructure:"workers"`
}

// SyncConfig configures transfer runs.
type SyncConfig struct {
	Workers      int           `mapstructure:"workers"`
	Retries      int           `mapstructure:"retries"`
	UnitTimeout  time.Duration `mapstructure:"unit_timeout"`
	FreeHeadroom string        `mapstructure:"free_headroom"`
	RateLimit    string        `mapstructure:"rate_limit"`
}

// Config represents the application configuration.
type Config struct {
	DefaultProfile string        `mapstructure:"default_profile"`
	Scan           ScanConfig    `mapstructure:"scan"`
	Sync           SyncConfig    `mapstructure:"sync"`
	Logging        LoggingConfig `mapstructure:"logging"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/loadout/config.yaml
//   - $HOME/.config/loadout/config.yaml
//
// Environment variables are prefixed with LOADOUT_ (e.g.,
// LOADOUT_SYNC_WORKERS).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, "loadout"))
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	v.AddConfigPath(filepath.Join(homeDir, ".config", "loadout"))

	v.SetEnvPrefix("LOADOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; defaults apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("default_profile", "")

	v.SetDefault("scan.workers", DefaultScanWorkers)

	v.SetDefault("sync.workers", DefaultSyncWorkers)
	v.SetDefault("sync.retries", DefaultSyncRetries)
	v.SetDefault("sync.unit_timeout", DefaultUnitTimeout)
	v.SetDefault("sync.free_headroom", DefaultFreeHeadroom)
	v.SetDefault("sync.rate_limit", "") // empty means unlimited

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // empty means the default state path
	v.SetDefault("logging.console_level", "")
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"scanner": "info",
		"syncer":  "info",
		"engine":  "info",
	})
}

// ParseSize converts a human-readable size string ("10MB", "512KiB")
// into bytes.
func ParseSize(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return int64(n), nil
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "loadout"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "loadout"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// WriteDefault writes a default config file if none exists.
// Returns nil if a config file already exists.
func WriteDefault() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	configDir, err := ConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.yaml")

	if _, err := os.Stat(configPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# Loadout Mod Sync Configuration

# Profile used when no --profile flag is given
default_profile: ""

# Local scan settings
scan:
  workers: %d

# Transfer settings
sync:
  workers: %d
  retries: %d
  # Per-file transfer deadline (0 disables)
  unit_timeout: %s
  # Required free disk space on top of the planned download size
  free_headroom: %s
  # Aggregate download bandwidth cap, e.g. "5MB" per second (empty = unlimited)
  rate_limit: ""

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/loadout/loadout.log)
  path: ""
  # Echo logs to stderr at this level (empty disables)
  console_level: ""
  # Log rotation settings
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: true
  # Per-component log levels
  components:
    scanner: info
    syncer: info
    engine: info
`, DefaultScanWorkers, DefaultSyncWorkers, DefaultSyncRetries, DefaultUnitTimeout, DefaultFreeHeadroom)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}

	return nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/loadout/ for the digest cache database.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "loadout")
}

// StateDir returns $XDG_STATE_HOME/loadout/ for logs, baselines, and
// profiles.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "loadout")
}

// DefaultCachePath returns the default digest cache database path.
func DefaultCachePath() string {
	return filepath.Join(DataDir(), "cache")
}

// ProfilesDir returns the directory holding profile definitions.
func ProfilesDir() string {
	return filepath.Join(StateDir(), "profiles")
}

// BaselinesDir returns the directory holding per-profile baselines.
func BaselinesDir() string {
	return filepath.Join(StateDir(), "baselines")
}

// RemoteCacheDir returns the directory holding per-profile remote
// manifest snapshots.
func RemoteCacheDir() string {
	return filepath.Join(StateDir(), "remote")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	if err := os.MkdirAll(DataDir(), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}

// EnsureStateDir creates the state directory if it doesn't exist.
func EnsureStateDir() error {
	if err := os.MkdirAll(StateDir(), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}
