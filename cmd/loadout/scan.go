package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/modpack-tools/loadout/pkg/loadout/engine"
	"github.com/modpack-tools/loadout/pkg/loadout/output"
	"github.com/modpack-tools/loadout/pkg/loadout/types"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Index the local mod folder",
	Long: `Walk the profile's mod folder, computing content digests for every
file. Unchanged files reuse the digest cache, so repeat scans only hash
what actually changed.

With --rebaseline, the scan is a forced full rehash and its result is
persisted as the profile's new baseline: local drift is accepted as the
new truth instead of being repaired.`,
	RunE: runScanCmd,
}

func init() {
	scanCmd.Flags().Bool("force", false, "rehash every file, ignoring the digest cache")
	scanCmd.Flags().Bool("rebaseline", false, "accept the scan result as the profile's new baseline")
	scanCmd.Flags().IntP("workers", "w", 0, "hash worker count (0 uses the configured default)")
	rootCmd.AddCommand(scanCmd)
}

func runScanCmd(cmd *cobra.Command, _ []string) error {
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

	force, _ := cmd.Flags().GetBool("force")
	workers, _ := cmd.Flags().GetInt("workers")
	if workers == 0 {
		workers = viper.GetInt("scan.workers")
	}

	opts := engine.ScanOptions{Force: force, Workers: workers}

	var report *types.ScanReport
	if rebaseline, _ := cmd.Flags().GetBool("rebaseline"); rebaseline {
		report, err = eng.Rebaseline(ctx, profileID, opts)
	} else {
		report, err = eng.Scan(ctx, profileID, opts)
	}
	if err != nil {
		return err
	}

	return renderReport(&output.Report{Profile: profileID, Scan: report})
}
