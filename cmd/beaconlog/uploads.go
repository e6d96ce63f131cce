package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/beaconlog/pkg/cli"
	"mercator-hq/beaconlog/pkg/config"
	"mercator-hq/beaconlog/pkg/upload"
)

var uploadsFlags struct {
	status string
	limit  int
	output string
	days   int
	dryRun bool
}

var uploadsCmd = &cobra.Command{
	Use:   "uploads",
	Short: "Inspect the upload ledger",
	Long: `Query and maintain the SQLite ledger recording every hand-off of a
finalized log file to the upload sink.`,
}

var uploadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded hand-offs",
	Long: `List ledger entries ordered by day and sequence.

Examples:
  # Everything
  beaconlog uploads list

  # Failed hand-offs as CSV
  beaconlog uploads list --status failed --output csv`,
	RunE: listUploads,
}

var uploadsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete local copies of uploaded files past retention",
	Long: `Delete local files the ledger records as uploaded whose day is older than
the retention window, and mark them pruned. Failed and abandoned files are
never deleted.

Examples:
  # Use upload.retention.days from the config
  beaconlog uploads prune

  # Show what a 7 day window would delete
  beaconlog uploads prune --days 7 --dry-run`,
	RunE: pruneUploads,
}

func init() {
	rootCmd.AddCommand(uploadsCmd)
	uploadsCmd.AddCommand(uploadsListCmd, uploadsPruneCmd)

	uploadsListCmd.Flags().StringVar(&uploadsFlags.status, "status", "", "filter by status (queued, uploaded, failed, abandoned, pruned)")
	uploadsListCmd.Flags().IntVar(&uploadsFlags.limit, "limit", 0, "maximum number of entries (0 = all)")
	uploadsListCmd.Flags().StringVarP(&uploadsFlags.output, "output", "o", "text", "output format: text, json, csv")

	uploadsPruneCmd.Flags().IntVar(&uploadsFlags.days, "days", 0, "override retention days")
	uploadsPruneCmd.Flags().BoolVar(&uploadsFlags.dryRun, "dry-run", false, "list files without deleting them")
	uploadsPruneCmd.Flags().StringVarP(&uploadsFlags.output, "output", "o", "text", "output format for --dry-run: text, json, csv")
}

func openConfiguredLedger() (*config.Config, *upload.Ledger, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	if !cfg.Upload.Ledger.Enabled {
		return nil, nil, cli.NewConfigError("upload.ledger.enabled", "the upload ledger is disabled")
	}

	ledger, err := upload.OpenLedger(upload.LedgerConfig{
		Driver:      cfg.Upload.Ledger.Driver,
		Path:        cfg.Upload.Ledger.Path,
		BusyTimeout: cfg.Upload.Ledger.BusyTimeout,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, ledger, nil
}

func listUploads(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(uploadsFlags.output)
	if err != nil {
		return err
	}

	_, ledger, err := openConfiguredLedger()
	if err != nil {
		return err
	}
	defer ledger.Close()

	entries, err := ledger.List(commandContext(cmd), upload.ListOptions{
		Status: uploadsFlags.status,
		Limit:  uploadsFlags.limit,
	})
	if err != nil {
		return cli.NewCommandError("uploads list", err)
	}

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), cli.UploadTable(entries))
}

func pruneUploads(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(uploadsFlags.output)
	if err != nil {
		return err
	}

	cfg, ledger, err := openConfiguredLedger()
	if err != nil {
		return err
	}
	defer ledger.Close()

	loc, err := config.LoadLocation(cfg.Writer.Timezone)
	if err != nil {
		return cli.NewConfigError("writer.timezone", err.Error())
	}

	days := cfg.Upload.Retention.Days
	if uploadsFlags.days > 0 {
		days = uploadsFlags.days
	}
	if days <= 0 {
		return cli.NewConfigError("upload.retention.days", "retention is disabled; pass --days")
	}

	pruner := upload.NewPruner(ledger, upload.RetentionConfig{Days: days, Location: loc}, nil)
	ctx := commandContext(cmd)

	if uploadsFlags.dryRun {
		entries, err := ledger.PrunableBefore(ctx, pruner.Cutoff())
		if err != nil {
			return cli.NewCommandError("uploads prune", err)
		}
		return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), cli.UploadTable(entries))
	}

	n, err := pruner.Prune(ctx)
	if err != nil {
		return cli.NewCommandError("uploads prune", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Pruned %d file(s) before %s\n", n, pruner.Cutoff())
	return nil
}

// commandContext returns the command's context, or Background when the
// command was invoked without Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
