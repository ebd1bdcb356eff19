package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/modpack-tools/loadout/pkg/loadout/baseline"
	"github.com/modpack-tools/loadout/pkg/loadout/cache"
	"github.com/modpack-tools/loadout/pkg/loadout/config"
	"github.com/modpack-tools/loadout/pkg/loadout/engine"
	"github.com/modpack-tools/loadout/pkg/loadout/logging"
	"github.com/modpack-tools/loadout/pkg/loadout/output"
	"github.com/modpack-tools/loadout/pkg/loadout/profile"
	"github.com/modpack-tools/loadout/pkg/loadout/remote"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "loadout",
		Short: "Keep local mod folders in sync with a remote repository",
		Long: `Loadout synchronizes local mod folders against a published repository
manifest, verifying every file by content digest.

Examples:
  loadout profile add main ~/arma3/mods https://repo.example.com/main
  loadout sync -p main          # Bring the folder up to date
  loadout check -p main         # Verify the folder offline
  loadout plan -p main          # Preview pending transfers
  loadout repair -p main        # Restore the folder to its last good state`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/loadout/config.yaml)")
	rootCmd.PersistentFlags().StringP("profile", "p", "", "profile to operate on")
	rootCmd.PersistentFlags().StringP("output", "o", "pretty", "output format (pretty, plain, json)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")

	_ = viper.BindPFlag("profile", rootCmd.PersistentFlags().Lookup("profile"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			viper.AddConfigPath(filepath.Join(xdgConfigHome, "loadout"))
		}

		homeDir, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(homeDir, ".config", "loadout"))
		}
	}

	viper.SetEnvPrefix("LOADOUT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("scan.workers", config.DefaultScanWorkers)
	viper.SetDefault("sync.workers", config.DefaultSyncWorkers)
	viper.SetDefault("sync.retries", config.DefaultSyncRetries)
	viper.SetDefault("sync.unit_timeout", config.DefaultUnitTimeout)
	viper.SetDefault("sync.free_headroom", config.DefaultFreeHeadroom)

	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError("%v", err)
	}
	return err
}

// setupLogging initializes file logging from the loaded configuration.
// With --verbose, debug logs are echoed to stderr.
func setupLogging() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	maxSize, err := config.ParseSize(cfg.Logging.Rotation.MaxSize)
	if err != nil {
		return err
	}

	logCfg := logging.Config{
		Level: cfg.Logging.Level,
		Path:  cfg.Logging.Path,
		Rotation: logging.RotationConfig{
			MaxSize:    maxSize,
			MaxAge:     cfg.Logging.Rotation.MaxAge,
			MaxBackups: cfg.Logging.Rotation.MaxBackups,
			Daily:      cfg.Logging.Rotation.Daily,
		},
		Components:   cfg.Logging.Components,
		ConsoleLevel: cfg.Logging.ConsoleLevel,
	}
	if getVerbose() {
		logCfg.Level = "debug"
		logCfg.ConsoleLevel = "debug"
	}
	return logging.Init(logCfg)
}

// openEngine assembles the engine from the on-disk stores. The returned
// cleanup closes the cache database and must always run.
func openEngine() (*engine.Engine, func(), error) {
	if err := setupLogging(); err != nil {
		return nil, nil, err
	}
	if err := config.EnsureDataDir(); err != nil {
		return nil, nil, err
	}

	cacheStore, err := cache.Open(config.DefaultCachePath())
	if err != nil {
		return nil, nil, fmt.Errorf("open digest cache: %w", err)
	}

	eng := engine.New(engine.Config{
		Profiles:    profile.NewStore(config.ProfilesDir()),
		Baselines:   baseline.NewStore(config.BaselinesDir()),
		Cache:       cacheStore,
		RemoteCache: remote.NewManifestCache(config.RemoteCacheDir()),
	})

	cleanup := func() {
		if err := cacheStore.Close(); err != nil {
			printError("closing cache: %v", err)
		}
		_ = logging.Close()
	}
	return eng, cleanup, nil
}

// requireProfile resolves the profile from the flag or the configured
// default.
func requireProfile() (string, error) {
	if p := viper.GetString("profile"); p != "" {
		return p, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	if cfg.DefaultProfile != "" {
		return cfg.DefaultProfile, nil
	}
	return "", fmt.Errorf("no profile given: use --profile or set default_profile in the config")
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// renderReport prints a report in the selected output format.
func renderReport(r *output.Report) error {
	formatter, err := output.Get(viper.GetString("output"))
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, r); err != nil {
		return err
	}
	fmt.Print(buf.String())
	return nil
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printInfo prints a message unless quiet mode is enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printVerbose prints a message only in verbose mode.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
