package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/modpack-tools/loadout/pkg/loadout/config"
	"github.com/modpack-tools/loadout/pkg/loadout/engine"
	"github.com/modpack-tools/loadout/pkg/loadout/output"
	"github.com/modpack-tools/loadout/pkg/loadout/syncer"
	"github.com/modpack-tools/loadout/pkg/loadout/types"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Bring the local folder up to date with the repository",
	Long: `Fetch the remote manifest, transfer changed files, and remove files
the repository no longer publishes. Every download is verified against
its manifest digest before it replaces anything.

Mods with a failed transfer keep their previous state; re-running sync
retries exactly what failed.`,
	RunE: runSyncCmd,
}

func init() {
	syncCmd.Flags().IntP("workers", "w", 0, "concurrent transfers (0 uses the configured default)")
	syncCmd.Flags().Int("retries", 0, "extra attempts per file (0 uses the configured default)")
	syncCmd.Flags().String("rate-limit", "", "download bandwidth cap per second, e.g. 5MB (empty = configured default)")
	rootCmd.AddCommand(syncCmd)
}

func runSyncCmd(cmd *cobra.Command, _ []string) error {
	return runTransfer(cmd, false)
}

// runTransfer backs both sync and repair; they differ only in the
// engine call.
func runTransfer(cmd *cobra.Command, repair bool) error {
	profileID, err := requireProfile()
	if err != nil {
		return err
	}

	eng, cleanup, err := openEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	opts := syncOptionsFromFlags(cmd)

	var report *types.SyncReport
	if repair {
		report, err = eng.Repair(ctx, profileID, opts)
	} else {
		report, err = eng.Sync(ctx, profileID, opts)
	}
	if err != nil {
		return err
	}

	if err := renderReport(&output.Report{Profile: profileID, Sync: report}); err != nil {
		return err
	}
	if failed := report.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d files failed; mods held back: %v", len(failed), report.Held)
	}
	if report.Cancelled {
		return fmt.Errorf("cancelled before completion")
	}
	return nil
}

func syncOptionsFromFlags(cmd *cobra.Command) engine.SyncOptions {
	workers, _ := cmd.Flags().GetInt("workers")
	if workers == 0 {
		workers = viper.GetInt("sync.workers")
	}
	retries, _ := cmd.Flags().GetInt("retries")
	if retries == 0 {
		retries = viper.GetInt("sync.retries")
	}

	var progress func(syncer.Progress)
	if !getQuiet() && viper.GetString("output") == "pretty" {
		progress = func(p syncer.Progress) {
			fmt.Printf("\r%d/%d files", p.Done, p.Total)
			if p.Done == p.Total {
				fmt.Println()
			}
		}
	}

	headroom, err := config.ParseSize(viper.GetString("sync.free_headroom"))
	if err != nil {
		headroom = 0 // syncer falls back to its default
	}

	rateStr, _ := cmd.Flags().GetString("rate-limit")
	if rateStr == "" {
		rateStr = viper.GetString("sync.rate_limit")
	}
	rateLimit, err := config.ParseSize(rateStr)
	if err != nil {
		printError("invalid rate limit %q, running unlimited", rateStr)
		rateLimit = 0
	}

	return engine.SyncOptions{
		Scan:         engine.ScanOptions{Workers: viper.GetInt("scan.workers")},
		Workers:      workers,
		Retries:      retries,
		UnitTimeout:  viper.GetDuration("sync.unit_timeout"),
		FreeHeadroom: headroom,
		RateLimit:    rateLimit,
		OnProgress:   progress,
	}
}
