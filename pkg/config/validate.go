package config

import (
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/beaconlog/pkg/record"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "writer.directory").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// HasField reports whether a field error exists for the given path.
func (e ValidationError) HasField(field string) bool {
	for _, err := range e.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateScan(&cfg.Scan)...)
	errs = append(errs, validateFilter(&cfg.Filter)...)
	errs = append(errs, validateWriter(&cfg.Writer)...)
	errs = append(errs, validateUpload(&cfg.Upload)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateAdmin(&cfg.Admin)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateScan validates scan cycle configuration.
func validateScan(cfg *ScanConfig) []FieldError {
	var errs []FieldError

	if cfg.CadenceSeconds <= 0 {
		errs = append(errs, FieldError{
			Field:   "scan.scan_cadence_seconds",
			Message: "scan cadence must be positive",
		})
	}

	validModes := map[string]bool{"low_power": true, "balanced": true, "low_latency": true}
	if !validModes[cfg.Mode] {
		errs = append(errs, FieldError{
			Field:   "scan.mode",
			Message: fmt.Sprintf("invalid scan mode %q: must be 'low_power', 'balanced', or 'low_latency'", cfg.Mode),
		})
	}

	if cfg.StopTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "scan.stop_timeout",
			Message: "stop timeout must be positive",
		})
	}

	if cfg.Replay.Interval < 0 {
		errs = append(errs, FieldError{
			Field:   "scan.replay.interval",
			Message: "replay interval must be positive",
		})
	}

	return errs
}

// validateFilter validates record filter configuration.
func validateFilter(cfg *FilterConfig) []FieldError {
	var errs []FieldError

	if _, ok := record.FloorForMode(cfg.Mode); !ok || cfg.Mode == "" {
		errs = append(errs, FieldError{
			Field:   "filter.mode",
			Message: fmt.Sprintf("invalid filter mode %q: must be 'permissive' or 'strict'", cfg.Mode),
		})
	}

	// RSSI is reported as a signed byte
	if f := cfg.AcceptanceRSSIFloor; f != nil && (*f < -127 || *f > 0) {
		errs = append(errs, FieldError{
			Field:   "filter.acceptance_rssi_floor",
			Message: "acceptance floor must be between -127 and 0 dBm",
		})
	}

	return errs
}

// validateWriter validates writer configuration.
func validateWriter(cfg *WriterConfig) []FieldError {
	var errs []FieldError

	if cfg.Directory == "" {
		errs = append(errs, FieldError{
			Field:   "writer.directory",
			Message: "directory is required",
		})
	}

	if cfg.SizeFlushThresholdBytes <= 0 {
		errs = append(errs, FieldError{
			Field:   "writer.size_flush_threshold_bytes",
			Message: "size flush threshold must be positive",
		})
	}

	if cfg.CycleRotationThreshold <= 0 {
		errs = append(errs, FieldError{
			Field:   "writer.cycle_rotation_threshold",
			Message: "cycle rotation threshold must be positive",
		})
	}

	if cfg.SizeTriggerAction != "flush" && cfg.SizeTriggerAction != "rotate" {
		errs = append(errs, FieldError{
			Field:   "writer.size_trigger_action",
			Message: fmt.Sprintf("invalid size trigger action %q: must be 'flush' or 'rotate'", cfg.SizeTriggerAction),
		})
	}

	if cfg.MaxBufferBytes < cfg.SizeFlushThresholdBytes {
		errs = append(errs, FieldError{
			Field:   "writer.max_buffer_bytes",
			Message: "max buffer bytes must not be smaller than the size flush threshold",
		})
	}

	if _, err := LoadLocation(cfg.Timezone); err != nil {
		errs = append(errs, FieldError{
			Field:   "writer.timezone",
			Message: fmt.Sprintf("unknown timezone %q: %v", cfg.Timezone, err),
		})
	}

	if cfg.SequenceBase < 0 {
		errs = append(errs, FieldError{
			Field:   "writer.sequence_base",
			Message: "sequence base must be non-negative",
		})
	}

	return errs
}

// validateUpload validates upload configuration.
func validateUpload(cfg *UploadConfig) []FieldError {
	var errs []FieldError

	switch cfg.Sink {
	case "directory":
		if cfg.Directory == "" {
			errs = append(errs, FieldError{
				Field:   "upload.directory",
				Message: "directory is required when sink is 'directory'",
			})
		}
	case "none":
	default:
		errs = append(errs, FieldError{
			Field:   "upload.sink",
			Message: fmt.Sprintf("invalid sink %q: must be 'directory' or 'none'", cfg.Sink),
		})
	}

	if cfg.Mode != "copy" && cfg.Mode != "move" {
		errs = append(errs, FieldError{
			Field:   "upload.mode",
			Message: fmt.Sprintf("invalid mode %q: must be 'copy' or 'move'", cfg.Mode),
		})
	}

	if cfg.QueueSize <= 0 {
		errs = append(errs, FieldError{
			Field:   "upload.queue_size",
			Message: "queue size must be positive",
		})
	}

	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{
			Field:   "upload.timeout",
			Message: "timeout must be positive",
		})
	}
	if cfg.CloseTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "upload.close_timeout",
			Message: "close timeout must be positive",
		})
	}

	if cfg.Ledger.Enabled {
		if cfg.Ledger.Driver != "sqlite" && cfg.Ledger.Driver != "sqlite3" {
			errs = append(errs, FieldError{
				Field:   "upload.ledger.driver",
				Message: fmt.Sprintf("invalid driver %q: must be 'sqlite' or 'sqlite3'", cfg.Ledger.Driver),
			})
		}
		if cfg.Ledger.Path == "" {
			errs = append(errs, FieldError{
				Field:   "upload.ledger.path",
				Message: "ledger path is required when the ledger is enabled",
			})
		}
	}

	// Validate retention days
	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{
			Field:   "upload.retention.days",
			Message: "retention days must be non-negative",
		})
	}
	if cfg.Retention.Days > 3650 { // 10 years is excessive
		errs = append(errs, FieldError{
			Field:   "upload.retention.days",
			Message: "retention days exceeds reasonable limit (3650 days / 10 years)",
		})
	}
	if cfg.Retention.Days > 0 {
		if !cfg.Ledger.Enabled {
			errs = append(errs, FieldError{
				Field:   "upload.retention.days",
				Message: "retention requires the upload ledger to be enabled",
			})
		}
		if _, err := cron.ParseStandard(cfg.Retention.Schedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "upload.retention.schedule",
				Message: fmt.Sprintf("invalid cron schedule %q: %v", cfg.Retention.Schedule, err),
			})
		}
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Logging.Level == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: "logging level is required",
		})
	} else if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	// Validate logging format
	validFormats := map[string]bool{"json": true, "text": true}
	if cfg.Logging.Format == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: "logging format is required",
		})
	} else if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	for i, p := range cfg.Logging.RedactPatterns {
		if _, err := regexp.Compile(p.Pattern); err != nil {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("telemetry.logging.redact_patterns[%d].pattern", i),
				Message: fmt.Sprintf("invalid regular expression: %v", err),
			})
		}
	}

	// Validate metrics path
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with '/'",
		})
	}

	// Validate tracing configuration
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	return errs
}

// validateAdmin validates admin endpoint configuration.
func validateAdmin(cfg *AdminConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return errs
	}

	if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "admin.listen_address",
			Message: fmt.Sprintf("invalid listen address %q: %v", cfg.ListenAddress, err),
		})
	}

	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "admin.shutdown_timeout",
			Message: "shutdown timeout must be positive",
		})
	}

	return errs
}

// LoadLocation resolves a writer timezone name. "Local" and "" map to the
// host zone.
func LoadLocation(name string) (*time.Location, error) {
	switch name {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}
