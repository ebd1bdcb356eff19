package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/modpack-tools/loadout/pkg/loadout/engine"
	"github.com/modpack-tools/loadout/pkg/loadout/output"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the local folder against its baseline",
	Long: `Compare the profile's mod folder to the manifest recorded by the last
successful sync. Runs entirely offline and never modifies the folder.

Exits non-zero when any file is modified, missing, extra, or unreadable.`,
	RunE: runCheckCmd,
}

func init() {
	checkCmd.Flags().Bool("force", false, "rehash every file, ignoring the digest cache")
	rootCmd.AddCommand(checkCmd)
}

func runCheckCmd(cmd *cobra.Command, _ []string) error {
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
	drift, err := eng.Check(ctx, profileID, engine.ScanOptions{
		Force:   force,
		Workers: viper.GetInt("scan.workers"),
	})
	if err != nil {
		return err
	}

	if err := renderReport(&output.Report{Profile: profileID, Drift: drift}); err != nil {
		return err
	}
	if !drift.Clean() {
		return fmt.Errorf("%d files diverge from the baseline",
			len(drift.Modified)+len(drift.Missing)+len(drift.Extra)+len(drift.ScanErrors))
	}
	return nil
}
