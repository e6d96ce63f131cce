package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/beaconlog/pkg/cli"
	"mercator-hq/beaconlog/pkg/config"
)

var validateFlags struct {
	format string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load a configuration file, apply defaults and environment overrides, and
report every invalid field.

Examples:
  # Validate the default config file
  beaconlog validate

  # Validate a specific file with JSON output
  beaconlog validate --config /etc/beaconlog/config.yaml --format json`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json")
}

type validationReport struct {
	File   string              `json:"file"`
	Valid  bool                `json:"valid"`
	Errors []config.FieldError `json:"errors,omitempty"`
	Floor  int                 `json:"acceptance_rssi_floor,omitempty"`
}

func validateConfig(cmd *cobra.Command, args []string) error {
	report := validationReport{File: cfgFile}

	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	var verr config.ValidationError
	switch {
	case err == nil:
		report.Valid = true
		report.Floor = cfg.Filter.Floor()
	case errors.As(err, &verr):
		report.Errors = verr.Errors
	default:
		return cli.NewConfigError("", err.Error())
	}

	out := cmd.OutOrStdout()
	if validateFlags.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		if report.Valid {
			fmt.Fprintf(out, "✓ %s is valid (acceptance floor %d dBm)\n", cfgFile, report.Floor)
		} else {
			fmt.Fprintf(out, "✗ %s has %d invalid field(s):\n", cfgFile, len(report.Errors))
			for _, fe := range report.Errors {
				fmt.Fprintf(out, "  - %s: %s\n", fe.Field, fe.Message)
			}
		}
	}

	if !report.Valid {
		return cli.NewConfigError("", fmt.Sprintf("%d invalid field(s)", len(report.Errors)))
	}
	return nil
}
