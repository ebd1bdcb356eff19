package main

import (
	"github.com/spf13/cobra"
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Restore the local folder to the last synced state",
	Long: `Rebuild the local folder from the last successful sync without
contacting the repository for a new manifest. Files that were deleted
or corrupted are fetched again; files that do not belong are removed.

Use this after check reports drift you did not intend.`,
	RunE: runRepairCmd,
}

func init() {
	repairCmd.Flags().IntP("workers", "w", 0, "concurrent transfers (0 uses the configured default)")
	repairCmd.Flags().Int("retries", 0, "extra attempts per file (0 uses the configured default)")
	repairCmd.Flags().String("rate-limit", "", "download bandwidth cap per second, e.g. 5MB (empty = configured default)")
	rootCmd.AddCommand(repairCmd)
}

func runRepairCmd(cmd *cobra.Command, _ []string) error {
	return runTransfer(cmd, true)
}
