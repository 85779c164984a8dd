package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "vigil-hypertrace",
	Short: "Trading account behavioral profiler",
	Long: `Behavioral profiling engine for perpetuals trading accounts.

Fills are normalized, replayed through per-account position tracking,
aggregated into idempotent daily buckets, and rolled up into lifetime
trader profiles. Profiles are classified (LIQUIDATOR, HFT,
SMART_DIRECTIONAL, RETAIL) and the open interest of smart money accounts
is aggregated into per-asset positioning signals.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	// Flags can be added here if needed
}
