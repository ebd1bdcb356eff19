package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/modpack-tools/loadout/pkg/loadout/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage loadout configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/loadout/config.yaml (if set)
  2. ~/.config/loadout/config.yaml

Environment variables can override config file settings using the LOADOUT_ prefix:
  LOADOUT_DEFAULT_PROFILE=main
  LOADOUT_SYNC_WORKERS=8
  LOADOUT_SYNC_UNIT_TIMEOUT=15m`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration settings from all sources.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one will be created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// runConfigShow displays the current configuration.
func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if configFile := viper.ConfigFileUsed(); configFile != "" {
		fmt.Printf("Config file: %s\n\n", configFile)
	} else {
		fmt.Println("Config file: (using defaults, no file found)")
		fmt.Println()
	}

	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("default_profile:      %s\n", orNone(cfg.DefaultProfile))
	fmt.Printf("scan.workers:         %d\n", cfg.Scan.Workers)
	fmt.Printf("sync.workers:         %d\n", cfg.Sync.Workers)
	fmt.Printf("sync.retries:         %d\n", cfg.Sync.Retries)
	fmt.Printf("sync.unit_timeout:    %s\n", cfg.Sync.UnitTimeout)
	fmt.Printf("sync.free_headroom:   %s\n", cfg.Sync.FreeHeadroom)
	fmt.Printf("logging.level:        %s\n", cfg.Logging.Level)
	fmt.Printf("logging.path:         %s\n", orNone(cfg.Logging.Path))

	fmt.Println("\nEnvironment Overrides:")
	fmt.Println("----------------------")
	envVars := []string{
		"LOADOUT_DEFAULT_PROFILE",
		"LOADOUT_SCAN_WORKERS",
		"LOADOUT_SYNC_WORKERS",
		"LOADOUT_SYNC_RETRIES",
		"LOADOUT_SYNC_UNIT_TIMEOUT",
		"LOADOUT_SYNC_FREE_HEADROOM",
		"LOADOUT_LOGGING_LEVEL",
		"LOADOUT_LOGGING_PATH",
	}

	anyOverrides := false
	for _, name := range envVars {
		if val := os.Getenv(name); val != "" {
			fmt.Printf("%s=%s\n", name, val)
			anyOverrides = true
		}
	}
	if !anyOverrides {
		fmt.Println("(none)")
	}

	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// runConfigEdit opens the config file in an editor.
func runConfigEdit(cmd *cobra.Command, args []string) error {
	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	printVerbose("Opening %s with %s", configPath, editor)

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}

	return nil
}

// runConfigInit creates a default config file.
func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	if _, err := os.Stat(configPath); err == nil {
		printInfo("Config file already exists: %s", configPath)
		printInfo("Use 'loadout config edit' to modify it.")
		return nil
	}

	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo("Created default config file: %s", configPath)
	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(cmd *cobra.Command, args []string) error {
	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	fmt.Println(configPath)

	if _, err := os.Stat(configPath); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}

	return nil
}
