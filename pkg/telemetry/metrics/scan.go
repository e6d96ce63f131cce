package metrics

import (
	"mercator-hq/beaconlog/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ScanStates lists the values of the state label on beaconlog_scan_state.
var ScanStates = []string{"idle", "scanning", "stopped"}

// ScanMetrics tracks the scan cycle controller.
type ScanMetrics struct {
	cycles        prometheus.Counter
	startFailures *prometheus.CounterVec
	state         *prometheus.GaugeVec
}

// NewScanMetrics creates and registers scan metrics with the provided registry.
func NewScanMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ScanMetrics {
	sm := &ScanMetrics{
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "scan_cycles_total",
			Help:      "Completed scan cycles",
		}),

		startFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "scan_start_failures_total",
				Help:      "Scan starts refused by the platform",
			},
			[]string{"kind"},
		),

		state: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "scan_state",
				Help:      "Current controller state (1 for the active state)",
			},
			[]string{"state"},
		),
	}

	registry.MustRegister(sm.cycles, sm.startFailures, sm.state)

	return sm
}
