package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable override.
const EnvPrefix = "BEACONLOG_"

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded on top of NewDefaultConfig, remaining zero values get
// defaults, and the result is validated.
// The configuration is not modified by environment variables; use
// LoadConfigWithEnvOverrides for that functionality.
func LoadConfig(path string) (*Config, error) {
	// Read the file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	// Validate
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML configuration and applies defaults without validating.
func Parse(data []byte) (*Config, error) {
	cfg := NewDefaultConfig()

	// Parse YAML on top of the defaults
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Apply defaults to anything the file zeroed
	ApplyDefaults(cfg)

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention BEACONLOG_SECTION_FIELD (e.g., BEACONLOG_WRITER_DIRECTORY).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	// First load from file (this already applies defaults)
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Re-validate after overrides
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Scan overrides
	envInt("SCAN_SCAN_CADENCE_SECONDS", &cfg.Scan.CadenceSeconds)
	envBool("SCAN_CONTINUOUS", &cfg.Scan.Continuous)
	envString("SCAN_MODE", &cfg.Scan.Mode)
	if val := os.Getenv(EnvPrefix + "SCAN_FILTERS"); val != "" {
		cfg.Scan.Filters = splitList(val)
	}
	envString("SCAN_REPLAY_FILE", &cfg.Scan.Replay.File)
	envDuration("SCAN_REPLAY_INTERVAL", &cfg.Scan.Replay.Interval)

	// Filter overrides
	envString("FILTER_MODE", &cfg.Filter.Mode)
	if val := os.Getenv(EnvPrefix + "FILTER_ACCEPTANCE_RSSI_FLOOR"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Filter.AcceptanceRSSIFloor = &i
		}
	}
	envString("FILTER_HASH_KEY", &cfg.Filter.HashKey)

	// Writer overrides
	envString("WRITER_DIRECTORY", &cfg.Writer.Directory)
	envInt("WRITER_SIZE_FLUSH_THRESHOLD_BYTES", &cfg.Writer.SizeFlushThresholdBytes)
	envInt("WRITER_CYCLE_ROTATION_THRESHOLD", &cfg.Writer.CycleRotationThreshold)
	envString("WRITER_SIZE_TRIGGER_ACTION", &cfg.Writer.SizeTriggerAction)
	envInt("WRITER_MAX_BUFFER_BYTES", &cfg.Writer.MaxBufferBytes)
	envString("WRITER_TIMEZONE", &cfg.Writer.Timezone)

	// Upload overrides
	envString("UPLOAD_SINK", &cfg.Upload.Sink)
	envString("UPLOAD_DIRECTORY", &cfg.Upload.Directory)
	envString("UPLOAD_MODE", &cfg.Upload.Mode)
	envInt("UPLOAD_QUEUE_SIZE", &cfg.Upload.QueueSize)
	envDuration("UPLOAD_TIMEOUT", &cfg.Upload.Timeout)
	envBool("UPLOAD_DRAIN_ON_CLOSE", &cfg.Upload.DrainOnClose)
	envBool("UPLOAD_LEDGER_ENABLED", &cfg.Upload.Ledger.Enabled)
	envString("UPLOAD_LEDGER_DRIVER", &cfg.Upload.Ledger.Driver)
	envString("UPLOAD_LEDGER_PATH", &cfg.Upload.Ledger.Path)
	envInt("UPLOAD_RETENTION_DAYS", &cfg.Upload.Retention.Days)
	envString("UPLOAD_RETENTION_SCHEDULE", &cfg.Upload.Retention.Schedule)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_LOGGING_REDACT_IDENTIFIERS", &cfg.Telemetry.Logging.RedactIdentifiers)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}

	// Admin overrides
	envBool("ADMIN_ENABLED", &cfg.Admin.Enabled)
	envString("ADMIN_LISTEN_ADDRESS", &cfg.Admin.ListenAddress)
}

func envString(name string, dst *string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		*dst = val
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
