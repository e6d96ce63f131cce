package config

import "time"

// Default values for configuration fields.
const (
	// Scan defaults
	DefaultScanCadenceSeconds = 30
	DefaultScanContinuous     = true
	DefaultScanMode           = "low_latency"
	DefaultScanStopTimeout    = 5 * time.Second
	DefaultReplayInterval     = 100 * time.Millisecond
	DefaultReplayLoop         = true

	// Filter defaults
	DefaultFilterMode = "permissive"

	// Writer defaults
	DefaultWriterDirectory         = "data/logs"
	DefaultSizeFlushThresholdBytes = 2048
	DefaultCycleRotationThreshold  = 60
	DefaultSizeTriggerAction       = "flush"
	DefaultMaxBufferBytes          = 1048576 // 1MB
	DefaultWriterTimezone          = "Local"
	DefaultSequenceBase            = 1

	// Upload defaults
	DefaultUploadSink         = "directory"
	DefaultUploadDirectory    = "data/uploads"
	DefaultUploadMode         = "copy"
	DefaultUploadQueueSize    = 64
	DefaultUploadTimeout      = 30 * time.Second
	DefaultUploadDrainOnClose = true
	DefaultUploadCloseTimeout = 30 * time.Second
	DefaultLedgerEnabled      = true
	DefaultLedgerDriver       = "sqlite"
	DefaultLedgerPath         = "data/uploads.db"
	DefaultLedgerBusyTimeout  = 5 * time.Second
	DefaultRetentionDays      = 0
	DefaultRetentionSchedule  = "0 3 * * *"

	// Telemetry defaults
	DefaultLoggingLevel        = "info"
	DefaultLoggingFormat       = "json"
	DefaultRedactIdentifiers   = true
	DefaultMetricsEnabled      = true
	DefaultMetricsPath         = "/metrics"
	DefaultMetricsNamespace    = "beaconlog"
	DefaultTracingEnabled      = false
	DefaultTracingServiceName  = "beaconlog"
	DefaultTracingSampleRatio  = 1.0
	DefaultTracingTimeout      = 10 * time.Second

	// Admin defaults
	DefaultAdminEnabled         = true
	DefaultAdminListenAddress   = "127.0.0.1:9464"
	DefaultAdminShutdownTimeout = 5 * time.Second
)

// DefaultDispatchDurationBuckets are the histogram buckets for hand-off duration.
var DefaultDispatchDurationBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30}

// NewDefaultConfig returns a configuration with every default applied.
// Boolean options that default to true are only settable this way, so
// LoadConfig decodes YAML on top of this value.
func NewDefaultConfig() *Config {
	cfg := &Config{
		Scan: ScanConfig{
			Continuous: DefaultScanContinuous,
			Replay: ReplayConfig{
				Loop: DefaultReplayLoop,
			},
		},
		Upload: UploadConfig{
			DrainOnClose: DefaultUploadDrainOnClose,
			Ledger: LedgerConfig{
				Enabled: DefaultLedgerEnabled,
			},
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{
				RedactIdentifiers: DefaultRedactIdentifiers,
			},
			Metrics: MetricsConfig{
				Enabled: DefaultMetricsEnabled,
			},
			Tracing: TracingConfig{
				Enabled: DefaultTracingEnabled,
			},
		},
		Admin: AdminConfig{
			Enabled: DefaultAdminEnabled,
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero-valued field with its default.
// Boolean fields are left untouched.
func ApplyDefaults(cfg *Config) {
	// Scan defaults
	if cfg.Scan.CadenceSeconds == 0 {
		cfg.Scan.CadenceSeconds = DefaultScanCadenceSeconds
	}
	if cfg.Scan.Mode == "" {
		cfg.Scan.Mode = DefaultScanMode
	}
	if cfg.Scan.StopTimeout == 0 {
		cfg.Scan.StopTimeout = DefaultScanStopTimeout
	}
	if cfg.Scan.Replay.Interval == 0 {
		cfg.Scan.Replay.Interval = DefaultReplayInterval
	}

	// Filter defaults
	if cfg.Filter.Mode == "" {
		cfg.Filter.Mode = DefaultFilterMode
	}

	// Writer defaults
	if cfg.Writer.Directory == "" {
		cfg.Writer.Directory = DefaultWriterDirectory
	}
	if cfg.Writer.SizeFlushThresholdBytes == 0 {
		cfg.Writer.SizeFlushThresholdBytes = DefaultSizeFlushThresholdBytes
	}
	if cfg.Writer.CycleRotationThreshold == 0 {
		cfg.Writer.CycleRotationThreshold = DefaultCycleRotationThreshold
	}
	if cfg.Writer.SizeTriggerAction == "" {
		cfg.Writer.SizeTriggerAction = DefaultSizeTriggerAction
	}
	if cfg.Writer.MaxBufferBytes == 0 {
		cfg.Writer.MaxBufferBytes = DefaultMaxBufferBytes
	}
	if cfg.Writer.Timezone == "" {
		cfg.Writer.Timezone = DefaultWriterTimezone
	}
	if cfg.Writer.SequenceBase == 0 {
		cfg.Writer.SequenceBase = DefaultSequenceBase
	}

	// Upload defaults
	if cfg.Upload.Sink == "" {
		cfg.Upload.Sink = DefaultUploadSink
	}
	if cfg.Upload.Directory == "" {
		cfg.Upload.Directory = DefaultUploadDirectory
	}
	if cfg.Upload.Mode == "" {
		cfg.Upload.Mode = DefaultUploadMode
	}
	if cfg.Upload.QueueSize == 0 {
		cfg.Upload.QueueSize = DefaultUploadQueueSize
	}
	if cfg.Upload.Timeout == 0 {
		cfg.Upload.Timeout = DefaultUploadTimeout
	}
	if cfg.Upload.CloseTimeout == 0 {
		cfg.Upload.CloseTimeout = DefaultUploadCloseTimeout
	}
	if cfg.Upload.Ledger.Driver == "" {
		cfg.Upload.Ledger.Driver = DefaultLedgerDriver
	}
	if cfg.Upload.Ledger.Path == "" {
		cfg.Upload.Ledger.Path = DefaultLedgerPath
	}
	if cfg.Upload.Ledger.BusyTimeout == 0 {
		cfg.Upload.Ledger.BusyTimeout = DefaultLedgerBusyTimeout
	}
	if cfg.Upload.Retention.Schedule == "" {
		cfg.Upload.Retention.Schedule = DefaultRetentionSchedule
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Telemetry.Metrics.DispatchDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.DispatchDurationBuckets = append([]float64(nil), DefaultDispatchDurationBuckets...)
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}

	// Admin defaults
	if cfg.Admin.ListenAddress == "" {
		cfg.Admin.ListenAddress = DefaultAdminListenAddress
	}
	if cfg.Admin.ShutdownTimeout == 0 {
		cfg.Admin.ShutdownTimeout = DefaultAdminShutdownTimeout
	}
}
