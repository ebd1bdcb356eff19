package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modpack-tools/loadout/pkg/loadout/logging"
)

// Note: these tests modify global logging state and must not run in
// parallel.
func TestInit(t *testing.T) {
	validDir := t.TempDir()
	componentsDir := t.TempDir()
	invalidDir := t.TempDir()

	tests := []struct {
		name    string
		cfg     logging.Config
		wantErr bool
	}{
		{
			name: "valid config with defaults",
			cfg: logging.Config{
				Level: "info",
				Path:  filepath.Join(validDir, "test.log"),
			},
			wantErr: false,
		},
		{
			name: "valid config with component overrides",
			cfg: logging.Config{
				Level: "info",
				Path:  filepath.Join(componentsDir, "components.log"),
				Components: map[string]string{
					"scanner": "debug",
					"syncer":  "warn",
				},
			},
			wantErr: false,
		},
		{
			name: "invalid log level",
			cfg: logging.Config{
				Level: "invalid",
				Path:  filepath.Join(invalidDir, "invalid.log"),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := logging.Init(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Init() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if err == nil {
				if closeErr := logging.Close(); closeErr != nil {
					t.Errorf("Close() error = %v", closeErr)
				}
			}
		})
	}
}

func TestGetBeforeInitIsSilent(t *testing.T) {
	logger := logging.Get("uninitialized-component")
	// Must not panic or write anywhere.
	logger.Info("dropped message")
	logger.Error("also dropped")
}

func TestLoggerWritesToFile(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "test.log")

	if err := logging.Init(logging.Config{Level: "debug", Path: path}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	logger := logging.Get("scanner")
	logger.Info("scan started", "profile", "main")
	logger.Debug("detail line")

	if err := logging.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "scan started") {
		t.Errorf("log file missing info message: %q", content)
	}
	if !strings.Contains(content, "scanner") {
		t.Errorf("log file missing component prefix: %q", content)
	}
	if !strings.Contains(content, "detail line") {
		t.Errorf("log file missing debug message at debug level: %q", content)
	}
}

func TestComponentLevelOverride(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "test.log")

	cfg := logging.Config{
		Level: "info",
		Path:  path,
		Components: map[string]string{
			"cache": "error",
		},
	}
	if err := logging.Init(cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	logging.Get("cache").Info("suppressed")
	logging.Get("cache").Error("kept")

	if err := logging.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if strings.Contains(string(data), "suppressed") {
		t.Error("info message should be filtered by component override")
	}
	if !strings.Contains(string(data), "kept") {
		t.Error("error message should pass component override")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    logging.Level
		wantErr bool
	}{
		{"debug", logging.LevelDebug, false},
		{"INFO", logging.LevelInfo, false},
		{"warning", logging.LevelWarn, false},
		{"error", logging.LevelError, false},
		{"verbose", logging.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := logging.ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
