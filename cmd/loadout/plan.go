package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/modpack-tools/loadout/pkg/loadout/engine"
	"github.com/modpack-tools/loadout/pkg/loadout/output"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Preview what a sync would transfer",
	Long: `Fetch the remote manifest and show the files that would be added,
updated, or removed, without touching the mod folder.`,
	RunE: runPlanCmd,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlanCmd(_ *cobra.Command, _ []string) error {
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

	result, err := eng.Plan(ctx, profileID, engine.ScanOptions{
		Workers: viper.GetInt("scan.workers"),
	})
	if err != nil {
		return err
	}

	return renderReport(&output.Report{Profile: profileID, Plan: result.Plan})
}
