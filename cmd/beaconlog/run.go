package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/beaconlog/pkg/cli"
	"mercator-hq/beaconlog/pkg/config"
	"mercator-hq/beaconlog/pkg/telemetry/logging"
	"mercator-hq/beaconlog/pkg/telemetry/tracing"
)

var runFlags struct {
	replayFile    string
	logDir        string
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start scanning and recording",
	Long: `Start the scan controller, the buffered writer and the upload dispatcher.

The process runs until SIGINT or SIGTERM. On shutdown the scanner is stopped,
pending lines are flushed, the open file is finalized and queued uploads are
drained. SIGHUP and edits to the config file reload the acceptance floor.

Examples:
  # Start with default config
  beaconlog run

  # Replay a fixture into a scratch directory
  beaconlog run --replay testdata/replay.csv --log-dir /tmp/beaconlog

  # Validate config without starting
  beaconlog run --dry-run`,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.replayFile, "replay", "", "override replay fixture path")
	runCmd.Flags().StringVar(&runFlags.logDir, "log-dir", "", "override log directory")
	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override admin listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
}

// loadRunConfig loads the config file and applies the run flag overrides.
func loadRunConfig() (*config.Config, error) {
	if err := config.Initialize(cfgFile); err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	if runFlags.replayFile != "" {
		cfg.Scan.Replay.File = runFlags.replayFile
	}
	if runFlags.logDir != "" {
		cfg.Writer.Directory = runFlags.logDir
	}
	if runFlags.listenAddress != "" {
		cfg.Admin.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	if err := config.Validate(cfg); err != nil {
		return nil, cli.NewConfigError("", err.Error())
	}
	return cfg, nil
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, os.Stderr))
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	logger.SetDefault()

	if runFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	printBanner(cmd, cfg)

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to initialize tracing: %w", err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(ctx); err != nil {
			slog.Warn("tracer shutdown failed", "error", err)
		}
	}()

	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.close()

	ctx := cli.SetupSignalHandler()

	if p.admin != nil {
		if err := p.admin.Listen(); err != nil {
			return cli.NewCommandError("run", err)
		}
	}

	if p.pruner != nil {
		if err := p.pruner.Start(ctx); err != nil {
			slog.Warn("failed to start retention scheduler", "error", err)
		} else {
			defer p.pruner.Stop()
			if next := p.pruner.NextPruning(); next != nil {
				slog.Debug("retention scheduler started", "next_pruning", next)
			}
		}
	}

	if err := p.controller.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Scanning every %s (run %s)\n", cfg.Scan.Cadence(), p.controller.RunID())

	errChan := make(chan error, 1)
	if p.admin != nil {
		go func() {
			if err := p.admin.Serve(ctx); err != nil {
				errChan <- err
			}
		}()
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Admin endpoint: http://%s/health\n", p.admin.Addr())
	}

	watchConfig(ctx, p)

	fmt.Fprintln(cmd.OutOrStdout(), "\nPress Ctrl+C to stop")

	var runErr error
	select {
	case <-ctx.Done():
		fmt.Fprintln(cmd.OutOrStdout(), "\nShutting down gracefully...")
	case err := <-errChan:
		runErr = cli.NewCommandError("run", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Upload.CloseTimeout+cfg.Scan.StopTimeout)
	defer cancel()
	if err := p.controller.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown incomplete", "error", err)
		if runErr == nil {
			runErr = cli.NewCommandError("run", err)
		}
	}
	if p.admin != nil {
		_ = p.admin.Shutdown(shutdownCtx)
	}

	st := p.controller.Status()
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Stopped: %d files finalized, %d uploaded, %d failed, %d abandoned\n",
		st.Writer.FilesFinalized, st.Upload.Uploaded, st.Upload.Failed, st.Upload.Abandoned)
	return runErr
}

// watchConfig reloads the config file on change or SIGHUP.
func watchConfig(ctx context.Context, p *pipeline) {
	watcher, err := config.NewWatcher(cfgFile, 0, slog.Default())
	if err != nil {
		slog.Warn("config watcher unavailable", "error", err)
	} else {
		go func() {
			if err := watcher.Watch(ctx, p.applyReload); err != nil {
				slog.Warn("config watcher stopped", "error", err)
			}
		}()
	}

	reloads := cli.ReloadRequests(ctx)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-reloads:
				cfg, err := config.ReloadConfig(cfgFile)
				if err != nil {
					slog.Error("config reload rejected", "error", err)
					continue
				}
				_ = p.applyReload(cfg)
				slog.Info("config reloaded", "path", cfgFile, "trigger", "SIGHUP")
			}
		}
	}()
}

func printBanner(cmd *cobra.Command, cfg *config.Config) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "beaconlog v%s\n", Version)
	fmt.Fprintf(out, "Loading configuration from: %s\n", cfgFile)
	fmt.Fprintln(out, "✓ Configuration loaded")

	slog.Debug("writer configured",
		"directory", cfg.Writer.Directory,
		"size_flush_threshold_bytes", cfg.Writer.SizeFlushThresholdBytes,
		"cycle_rotation_threshold", cfg.Writer.CycleRotationThreshold,
	)
	slog.Debug("upload configured", "sink", cfg.Upload.Sink, "ledger", cfg.Upload.Ledger.Enabled)
}
