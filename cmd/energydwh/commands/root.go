package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "energydwh",
	Short: "Danish energy warehouse - star-schema ETL for Energi Data Service",
	Long: `energydwh Unified CLI

Batch ETL over the Energi Data Service API: CO2 intensity, production
settlements and spot prices, staged raw and aggregated into hourly
star-schema facts per price area.

Usage:
  go run ./cmd/energydwh [command]

Examples:
  go run ./cmd/energydwh run --from 2024-06-01 --to 2024-06-08
  go run ./cmd/energydwh ingest co2 --from 2024-06-01 --to 2024-06-02
  go run ./cmd/energydwh gate --from 2024-06-01 --to 2024-06-08
  go run ./cmd/energydwh status`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
