package metrics

import (
	"mercator-hq/beaconlog/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// UploadMetrics tracks hand-off of finalized files and local retention.
type UploadMetrics struct {
	dispatches *prometheus.CounterVec
	duration   prometheus.Histogram
	queueDepth prometheus.Gauge
	pruned     prometheus.Counter
}

// NewUploadMetrics creates and registers upload metrics with the provided registry.
func NewUploadMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *UploadMetrics {
	um := &UploadMetrics{
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "dispatches_total",
				Help:      "File hand-offs by result",
			},
			[]string{"result"},
		),

		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent handing a file to the upload sink",
			Buckets:   cfg.DispatchDurationBuckets,
		}),

		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "dispatch_queue_depth",
			Help:      "Finalized files waiting for the upload sink",
		}),

		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "pruned_files_total",
			Help:      "Uploaded files removed from local storage by retention",
		}),
	}

	registry.MustRegister(um.dispatches, um.duration, um.queueDepth, um.pruned)

	return um
}
