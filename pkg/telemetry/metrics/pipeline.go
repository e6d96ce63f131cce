package metrics

import (
	"mercator-hq/beaconlog/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics tracks the observation path from scanner to log file.
//
// Metrics:
//   - beaconlog_observations_received_total
//   - beaconlog_observations_accepted_total
//   - beaconlog_observations_rejected_total{reason}
//   - beaconlog_observations_late_total
//   - beaconlog_observations_lost_total
//   - beaconlog_lines_written_total, beaconlog_bytes_written_total
//   - beaconlog_flushes_total{trigger}, beaconlog_flush_failures_total
//   - beaconlog_rotations_total{reason}
//   - beaconlog_buffer_bytes
type PipelineMetrics struct {
	received      prometheus.Counter
	accepted      prometheus.Counter
	rejected      *prometheus.CounterVec
	late          prometheus.Counter
	lost          prometheus.Counter
	linesWritten  prometheus.Counter
	bytesWritten  prometheus.Counter
	flushes       *prometheus.CounterVec
	flushFailures prometheus.Counter
	rotations     *prometheus.CounterVec
	bufferBytes   prometheus.Gauge
}

// NewPipelineMetrics creates and registers pipeline metrics with the provided registry.
func NewPipelineMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *PipelineMetrics {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      name,
			Help:      help,
		})
	}

	pm := &PipelineMetrics{
		received:     counter("observations_received_total", "Advertisements delivered by the scanner"),
		accepted:     counter("observations_accepted_total", "Advertisements that passed the acceptance filter"),
		late:         counter("observations_late_total", "Advertisements delivered after scanning stopped"),
		lost:         counter("observations_lost_total", "Accepted lines dropped without reaching a log file"),
		linesWritten: counter("lines_written_total", "Lines written to log files"),
		bytesWritten: counter("bytes_written_total", "Bytes written to log files"),
		flushFailures: counter("flush_failures_total",
			"Failed writes to the log directory"),

		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "observations_rejected_total",
				Help:      "Advertisements dropped by the acceptance filter",
			},
			[]string{"reason"},
		),

		flushes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "flushes_total",
				Help:      "Successful buffer flushes by trigger",
			},
			[]string{"trigger"},
		),

		rotations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rotations_total",
				Help:      "Log files finalized by reason",
			},
			[]string{"reason"},
		),

		bufferBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "buffer_bytes",
			Help:      "Bytes waiting in the write buffer",
		}),
	}

	registry.MustRegister(
		pm.received,
		pm.accepted,
		pm.rejected,
		pm.late,
		pm.lost,
		pm.linesWritten,
		pm.bytesWritten,
		pm.flushes,
		pm.flushFailures,
		pm.rotations,
		pm.bufferBytes,
	)

	return pm
}
