package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/beaconlog/pkg/cli"
	"mercator-hq/beaconlog/pkg/config"
	"mercator-hq/beaconlog/pkg/controller"
	"mercator-hq/beaconlog/pkg/hashcodec"
	"mercator-hq/beaconlog/pkg/record"
	"mercator-hq/beaconlog/pkg/rotation"
	"mercator-hq/beaconlog/pkg/scanner"
	"mercator-hq/beaconlog/pkg/server"
	"mercator-hq/beaconlog/pkg/telemetry/health"
	"mercator-hq/beaconlog/pkg/telemetry/metrics"
	"mercator-hq/beaconlog/pkg/upload"
	"mercator-hq/beaconlog/pkg/writer"
)

// pipeline holds every long-lived component of a run.
type pipeline struct {
	metrics    *metrics.Collector
	processor  *record.Processor
	ledger     *upload.Ledger
	dispatcher *upload.Dispatcher
	pruner     *upload.Pruner
	controller *controller.Controller
	checker    *health.Checker
	admin      *server.Server

	closeTimeout time.Duration
}

// buildPipeline wires the components described by cfg without starting them.
// close releases whatever was opened, also after a partial failure.
func buildPipeline(cfg *config.Config) (_ *pipeline, err error) {
	p := &pipeline{closeTimeout: cfg.Upload.CloseTimeout + cfg.Scan.StopTimeout}
	defer func() {
		if err != nil {
			p.close()
		}
	}()

	p.metrics = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	loc, err := config.LoadLocation(cfg.Writer.Timezone)
	if err != nil {
		return nil, cli.NewConfigError("writer.timezone", err.Error())
	}

	sink, err := newSink(cfg.Upload)
	if err != nil {
		return nil, err
	}

	dispatchOpts := []upload.DispatcherOption{upload.WithDispatchMetrics(p.metrics)}
	if cfg.Upload.Ledger.Enabled {
		p.ledger, err = upload.OpenLedger(upload.LedgerConfig{
			Driver:      cfg.Upload.Ledger.Driver,
			Path:        cfg.Upload.Ledger.Path,
			BusyTimeout: cfg.Upload.Ledger.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open upload ledger: %w", err)
		}
		dispatchOpts = append(dispatchOpts, upload.WithLedger(p.ledger))

		p.pruner = upload.NewPruner(p.ledger, upload.RetentionConfig{
			Days:     cfg.Upload.Retention.Days,
			Schedule: cfg.Upload.Retention.Schedule,
			Location: loc,
		}, p.metrics)
	}

	p.dispatcher = upload.NewDispatcher(sink, upload.Config{
		QueueSize:    cfg.Upload.QueueSize,
		Timeout:      cfg.Upload.Timeout,
		DrainOnClose: cfg.Upload.DrainOnClose,
		CloseTimeout: cfg.Upload.CloseTimeout,
	}, dispatchOpts...)

	scan, err := newScanner(cfg.Scan)
	if err != nil {
		return nil, err
	}

	mode, err := scanner.ParseScanMode(cfg.Scan.Mode)
	if err != nil {
		return nil, cli.NewConfigError("scan.mode", err.Error())
	}
	action, err := rotation.ParseSizeAction(cfg.Writer.SizeTriggerAction)
	if err != nil {
		return nil, cli.NewConfigError("writer.size_trigger_action", err.Error())
	}

	p.processor = record.NewProcessor(hashcodec.New([]byte(cfg.Filter.HashKey)), cfg.Filter.Floor())

	p.controller, err = controller.New(controller.Config{
		Cadence:     cfg.Scan.Cadence(),
		Continuous:  cfg.Scan.Continuous,
		Filter:      scanner.FilterConfig{Mode: mode, Filters: cfg.Scan.Filters},
		StopTimeout: cfg.Scan.StopTimeout,
		Writer: writer.Config{
			Directory:      cfg.Writer.Directory,
			Policy:         rotation.NewPolicy(cfg.Writer.SizeFlushThresholdBytes, cfg.Writer.CycleRotationThreshold, action),
			MaxBufferBytes: cfg.Writer.MaxBufferBytes,
			Location:       loc,
			SequenceBase:   cfg.Writer.SequenceBase,
		},
	}, controller.Deps{
		Scanner:       scan,
		Processor:     p.processor,
		Dispatcher:    p.dispatcher,
		Preconditions: scanner.PreconditionFunc(logPrecondition),
		Metrics:       p.metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create scan controller: %w", err)
	}

	p.checker = health.New(0)
	p.checker.Register("writer", health.Degrading, health.WriterCheck(p.controller.Writer()))
	p.checker.Register("scanner", health.Blocking, health.ScannerCheck(p.controller.ScannerHealth))
	if p.ledger != nil {
		p.checker.Register("ledger", health.Degrading, health.PingCheck(p.ledger.Ping))
	}

	if cfg.Admin.Enabled {
		metricsPath := cfg.Telemetry.Metrics.Path
		deps := server.Deps{
			Checker: p.checker,
			Status:  func() any { return p.controller.Status() },
			Version: Version,
		}
		if cfg.Telemetry.Metrics.Enabled {
			deps.Metrics = p.metrics
		}
		p.admin = server.New(cfg.Admin, metricsPath, deps)
	}

	return p, nil
}

// close shuts the controller down, finalizing its writer and closing the
// dispatcher, then closes the ledger. Without a controller only the
// dispatcher is closed. Controller.Shutdown is idempotent, so close also
// runs safely after a regular stop.
func (p *pipeline) close() {
	ctx, cancel := context.WithTimeout(context.Background(), p.closeTimeout)
	defer cancel()

	switch {
	case p.controller != nil:
		_ = p.controller.Shutdown(ctx)
	case p.dispatcher != nil:
		_ = p.dispatcher.Close(ctx)
	}
	if p.ledger != nil {
		_ = p.ledger.Close()
	}
}

// applyReload pushes the hot-reloadable settings of cfg into the running
// pipeline.
func (p *pipeline) applyReload(cfg *config.Config) error {
	prev := p.processor.Floor()
	floor := cfg.Filter.Floor()
	p.processor.SetFloor(floor)
	config.SetConfig(cfg)
	if prev != floor {
		slog.Info("acceptance floor changed", "from", prev, "to", floor)
	}
	return nil
}

func newSink(cfg config.UploadConfig) (upload.Sink, error) {
	switch cfg.Sink {
	case "none":
		return upload.NopSink{}, nil
	case "directory", "":
		sink, err := upload.NewDirectorySink(cfg.Directory, cfg.Mode)
		if err != nil {
			return nil, fmt.Errorf("failed to create upload sink: %w", err)
		}
		return sink, nil
	default:
		return nil, cli.NewConfigError("upload.sink", fmt.Sprintf("unsupported sink %q", cfg.Sink))
	}
}

// newScanner returns the scan subsystem. Only the replay scanner ships with
// this binary; platform radios bind through scanner.Scanner.
func newScanner(cfg config.ScanConfig) (scanner.Scanner, error) {
	if cfg.Replay.File == "" {
		return nil, cli.NewConfigError("scan.replay.file", "no scan subsystem available: set a replay fixture")
	}
	return scanner.NewReplayScanner(scanner.ReplayConfig{
		Path:     cfg.Replay.File,
		Interval: cfg.Replay.Interval,
		Loop:     cfg.Replay.Loop,
	}), nil
}

func logPrecondition(ctx context.Context, err *scanner.PreconditionError) {
	slog.WarnContext(ctx, "scan precondition not met, retrying on next tick",
		"reason", err.Reason,
		"error", err.Cause,
	)
}
