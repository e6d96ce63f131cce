package metrics

import (
	"time"

	"mercator-hq/beaconlog/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector is the single entry point for recording beaconlog metrics.
// All methods are safe to call on a nil *Collector, so components can be
// built without metrics in tests.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	pipeline *PipelineMetrics
	scan     *ScanMetrics
	upload   *UploadMetrics
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{Enabled: true, Namespace: "beaconlog"}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	// Set defaults if not specified
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.DispatchDurationBuckets) == 0 {
		cfg.DispatchDurationBuckets = config.DefaultDispatchDurationBuckets
	}

	c := &Collector{
		config:   cfg,
		registry: registry,
	}

	c.pipeline = NewPipelineMetrics(cfg, registry)
	c.scan = NewScanMetrics(cfg, registry)
	c.upload = NewUploadMetrics(cfg, registry)

	return c
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// ObservationReceived counts an advertisement delivered by the scanner.
func (c *Collector) ObservationReceived() {
	if !c.enabled() {
		return
	}
	c.pipeline.received.Inc()
}

// ObservationAccepted counts an advertisement that passed the filter.
func (c *Collector) ObservationAccepted() {
	if !c.enabled() {
		return
	}
	c.pipeline.accepted.Inc()
}

// ObservationRejected counts an advertisement dropped by the filter.
//
// Parameters:
//   - reason: "no_payload" or "weak_signal"
func (c *Collector) ObservationRejected(reason string) {
	if !c.enabled() {
		return
	}
	c.pipeline.rejected.WithLabelValues(reason).Inc()
}

// ObservationLate counts an advertisement that arrived after scanning stopped.
func (c *Collector) ObservationLate() {
	if !c.enabled() {
		return
	}
	c.pipeline.late.Inc()
}

// LinesLost counts buffered lines that were dropped without reaching disk.
func (c *Collector) LinesLost(n int) {
	if !c.enabled() || n <= 0 {
		return
	}
	c.pipeline.lost.Add(float64(n))
}

// LinesWritten records lines and bytes that reached a log file.
func (c *Collector) LinesWritten(lines, bytes int) {
	if !c.enabled() {
		return
	}
	c.pipeline.linesWritten.Add(float64(lines))
	c.pipeline.bytesWritten.Add(float64(bytes))
}

// RecordFlush counts a successful buffer flush.
//
// Parameters:
//   - trigger: "size", "cycle_end", "rotation" or "shutdown"
func (c *Collector) RecordFlush(trigger string) {
	if !c.enabled() {
		return
	}
	c.pipeline.flushes.WithLabelValues(trigger).Inc()
}

// RecordFlushFailure counts a failed write to the log directory.
func (c *Collector) RecordFlushFailure() {
	if !c.enabled() {
		return
	}
	c.pipeline.flushFailures.Inc()
}

// RecordRotation counts a finalized log file.
//
// Parameters:
//   - reason: "new_day", "size", "elapsed_cycles" or "shutdown"
func (c *Collector) RecordRotation(reason string) {
	if !c.enabled() {
		return
	}
	c.pipeline.rotations.WithLabelValues(reason).Inc()
}

// SetBufferBytes reports the size of the pending write buffer.
func (c *Collector) SetBufferBytes(n int) {
	if !c.enabled() {
		return
	}
	c.pipeline.bufferBytes.Set(float64(n))
}

// RecordScanCycle counts a completed scan cycle.
func (c *Collector) RecordScanCycle() {
	if !c.enabled() {
		return
	}
	c.scan.cycles.Inc()
}

// RecordScanStartFailure counts a failed scan start.
//
// Parameters:
//   - kind: the precondition reason, or "error" for other failures
func (c *Collector) RecordScanStartFailure(kind string) {
	if !c.enabled() {
		return
	}
	c.scan.startFailures.WithLabelValues(kind).Inc()
}

// SetScanState marks state as the current controller state.
func (c *Collector) SetScanState(state string) {
	if !c.enabled() {
		return
	}
	for _, s := range ScanStates {
		v := 0.0
		if s == state {
			v = 1
		}
		c.scan.state.WithLabelValues(s).Set(v)
	}
}

// RecordDispatch records the outcome of a file hand-off.
//
// Parameters:
//   - result: "queued", "queue_full", "success", "failure" or "abandoned"
//   - duration: time spent in the sink, zero when the sink was not called
func (c *Collector) RecordDispatch(result string, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.upload.dispatches.WithLabelValues(result).Inc()
	if duration > 0 {
		c.upload.duration.Observe(duration.Seconds())
	}
}

// SetQueueDepth reports the number of files waiting for the sink.
func (c *Collector) SetQueueDepth(n int) {
	if !c.enabled() {
		return
	}
	c.upload.queueDepth.Set(float64(n))
}

// RecordPruned counts local files removed by retention.
func (c *Collector) RecordPruned(n int) {
	if !c.enabled() || n <= 0 {
		return
	}
	c.upload.pruned.Add(float64(n))
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}
