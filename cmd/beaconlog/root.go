package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/beaconlog/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "beaconlog",
	Short: "Beaconlog - BLE beacon scan logger",
	Long: `Beaconlog scans for BLE advertisements on a fixed cadence and records
accepted observations into rotating per-day log files.

  - Scan cycles alternate or run back to back (continuous mode)
  - Observations below the RSSI floor are dropped
  - Device addresses are replaced by one-way tokens
  - Finalized files are handed to an upload sink in the background`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
