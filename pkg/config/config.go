package config

import (
	"time"

	"mercator-hq/beaconlog/pkg/record"
)

// Config is the root configuration structure for beaconlog.
// It contains every section consumed by the scan pipeline, the upload
// dispatcher and the telemetry stack.
type Config struct {
	// Scan controls the scan cycle cadence and the scan subsystem.
	Scan ScanConfig `yaml:"scan"`

	// Filter contains the acceptance filter applied to every advertisement.
	Filter FilterConfig `yaml:"filter"`

	// Writer controls buffering, rotation and the log directory.
	Writer WriterConfig `yaml:"writer"`

	// Upload controls the hand-off of finalized files to durable storage.
	Upload UploadConfig `yaml:"upload"`

	// Telemetry contains logging, metrics and tracing configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Admin configures the local HTTP endpoint exposing health and metrics.
	Admin AdminConfig `yaml:"admin"`
}

// ScanConfig contains configuration for the scan cycle controller.
type ScanConfig struct {
	// CadenceSeconds is the period of the scan timer in seconds.
	// Default: 30
	CadenceSeconds int `yaml:"scan_cadence_seconds"`

	// Continuous restarts scanning on the same tick that ends a cycle, so the
	// radio is idle only for the duration of the stop/start round trip.
	// When false, ticks alternate between scanning and idle.
	// Default: true
	Continuous bool `yaml:"continuous"`

	// Mode is the duty cycle requested from the scan subsystem.
	// Options: "low_power", "balanced", "low_latency"
	// Default: "low_latency"
	Mode string `yaml:"mode"`

	// Filters restricts scanning to the listed device addresses.
	// Default: [] (all devices)
	Filters []string `yaml:"filters"`

	// StopTimeout bounds each call that stops the scan subsystem.
	// Default: 5s
	StopTimeout time.Duration `yaml:"stop_timeout"`

	// Replay configures the replay scanner used when no platform radio is bound.
	Replay ReplayConfig `yaml:"replay"`
}

// Cadence returns the scan period as a duration.
func (c ScanConfig) Cadence() time.Duration {
	return time.Duration(c.CadenceSeconds) * time.Second
}

// ReplayConfig configures the fixture-driven replay scanner.
type ReplayConfig struct {
	// File is the fixture path ("address,rssi,payload_hex" rows).
	// Empty disables the replay scanner.
	File string `yaml:"file"`

	// Interval is the delay between replayed advertisements.
	// Default: 100ms
	Interval time.Duration `yaml:"interval"`

	// Loop restarts the fixture after its last row.
	// Default: true
	Loop bool `yaml:"loop"`
}

// FilterConfig contains configuration for the record processor.
type FilterConfig struct {
	// Mode selects a preset acceptance floor when AcceptanceRSSIFloor is unset.
	// Options: "permissive" (-100 dBm), "strict" (-98 dBm)
	// Default: "permissive"
	Mode string `yaml:"mode"`

	// AcceptanceRSSIFloor is the weakest accepted signal strength in dBm.
	// Observations below it are dropped. This field is hot-reloadable.
	// An explicit value, 0 included, wins over Mode.
	// Default: derived from Mode
	AcceptanceRSSIFloor *int `yaml:"acceptance_rssi_floor,omitempty"`

	// HashKey turns device tokens into keyed HMAC-SHA256 digests.
	// This should typically be loaded from an environment variable.
	// Default: "" (plain SHA-256)
	HashKey string `yaml:"hash_key"`
}

// Floor returns the effective acceptance floor: the explicit floor when set,
// otherwise the preset of Mode.
func (c FilterConfig) Floor() int {
	if c.AcceptanceRSSIFloor != nil {
		return *c.AcceptanceRSSIFloor
	}
	floor, _ := record.FloorForMode(c.Mode)
	return floor
}

// WriterConfig contains configuration for the buffered writer.
type WriterConfig struct {
	// Directory is where log files are created.
	// Default: "data/logs"
	Directory string `yaml:"directory"`

	// SizeFlushThresholdBytes is the pending buffer size that triggers a flush.
	// Default: 2048
	SizeFlushThresholdBytes int `yaml:"size_flush_threshold_bytes"`

	// CycleRotationThreshold is the number of scan cycles after which the
	// open file is closed and a new one started.
	// Default: 60
	CycleRotationThreshold int `yaml:"cycle_rotation_threshold"`

	// SizeTriggerAction selects what the size trigger does.
	// Options: "flush" (write into the open file), "rotate" (also close it)
	// Default: "flush"
	SizeTriggerAction string `yaml:"size_trigger_action"`

	// MaxBufferBytes bounds the buffer while writes are failing. Older lines
	// beyond the bound are dropped and counted as lost.
	// Default: 1048576 (1MB)
	MaxBufferBytes int `yaml:"max_buffer_bytes"`

	// Timezone is the IANA zone used to decide the calendar day.
	// Default: "Local"
	Timezone string `yaml:"timezone"`

	// SequenceBase is the sequence number of the first file of each day.
	// Default: 1
	SequenceBase int `yaml:"sequence_base"`
}

// UploadConfig contains configuration for the upload dispatcher.
type UploadConfig struct {
	// Sink selects the upload destination.
	// Options: "directory", "none"
	// Default: "directory"
	Sink string `yaml:"sink"`

	// Directory is the destination of the directory sink.
	// Default: "data/uploads"
	Directory string `yaml:"directory"`

	// Mode selects whether the directory sink copies or moves files.
	// Options: "copy", "move"
	// Default: "copy"
	Mode string `yaml:"mode"`

	// QueueSize is the capacity of the dispatch queue.
	// Default: 64
	QueueSize int `yaml:"queue_size"`

	// Timeout bounds a single hand-off to the sink.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// DrainOnClose finishes queued hand-offs at shutdown. When false they
	// are abandoned and counted.
	// Default: true
	DrainOnClose bool `yaml:"drain_on_close"`

	// CloseTimeout bounds the shutdown drain.
	// Default: 30s
	CloseTimeout time.Duration `yaml:"close_timeout"`

	// Ledger records every hand-off in SQLite.
	Ledger LedgerConfig `yaml:"ledger"`

	// Retention removes uploaded local files after a number of days.
	Retention RetentionConfig `yaml:"retention"`
}

// LedgerConfig contains configuration for the SQLite upload ledger.
type LedgerConfig struct {
	// Enabled turns the ledger on.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Driver is the database/sql driver name.
	// Options: "sqlite" (pure Go), "sqlite3" (cgo)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// Path is the database file path.
	// Default: "data/uploads.db"
	Path string `yaml:"path"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig contains configuration for local file retention.
type RetentionConfig struct {
	// Days is how long uploaded files stay on local storage.
	// 0 keeps them forever.
	// Default: 0
	Days int `yaml:"days"`

	// Schedule is the cron expression for pruning runs.
	// Default: "0 3 * * *"
	Schedule string `yaml:"schedule"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains OpenTelemetry tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains configuration for structured logging.
type LoggingConfig struct {
	// Level is the minimum log level.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactIdentifiers scrubs hardware addresses from log attributes.
	// Default: true
	RedactIdentifiers bool `yaml:"redact_identifiers"`

	// RedactPatterns contains additional redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern is a custom log redaction rule.
type RedactPattern struct {
	// Name identifies the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the replacement text (may reference groups).
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains configuration for Prometheus metrics.
type MetricsConfig struct {
	// Enabled controls whether metrics are exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path of the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "beaconlog"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: ""
	Subsystem string `yaml:"subsystem"`

	// DispatchDurationBuckets defines histogram buckets for hand-off
	// duration (seconds).
	// Default: [0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30]
	DispatchDurationBuckets []float64 `yaml:"dispatch_duration_buckets"`
}

// TracingConfig contains configuration for OpenTelemetry tracing.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP/gRPC collector address.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is reported as service.name.
	// Default: "beaconlog"
	ServiceName string `yaml:"service_name"`

	// SampleRatio is the fraction of traces sampled (0.0-1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Insecure disables TLS towards the collector.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// AdminConfig contains configuration for the admin HTTP endpoint.
type AdminConfig struct {
	// Enabled starts the admin server.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:9464"
	ListenAddress string `yaml:"listen_address"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 5s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}
