package config

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate_Defaults(t *testing.T) {
	if err := Validate(NewDefaultConfig()); err != nil {
		t.Fatalf("Validate(defaults) error = %v", err)
	}
}

func intPtr(v int) *int { return &v }

func TestValidate_ExplicitZeroFloor(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Filter.Mode = "strict"
	cfg.Filter.AcceptanceRSSIFloor = intPtr(0)

	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Filter.Floor() != 0 {
		t.Errorf("Floor() = %d, want 0", cfg.Filter.Floor())
	}
}

func TestValidate_Fields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero cadence", func(c *Config) { c.Scan.CadenceSeconds = 0 }, "scan.scan_cadence_seconds"},
		{"bad scan mode", func(c *Config) { c.Scan.Mode = "turbo" }, "scan.mode"},
		{"bad filter mode", func(c *Config) { c.Filter.Mode = "loose" }, "filter.mode"},
		{"positive floor", func(c *Config) { c.Filter.AcceptanceRSSIFloor = intPtr(5) }, "filter.acceptance_rssi_floor"},
		{"floor too low", func(c *Config) { c.Filter.AcceptanceRSSIFloor = intPtr(-128) }, "filter.acceptance_rssi_floor"},
		{"empty directory", func(c *Config) { c.Writer.Directory = "" }, "writer.directory"},
		{"zero size threshold", func(c *Config) { c.Writer.SizeFlushThresholdBytes = 0 }, "writer.size_flush_threshold_bytes"},
		{"zero cycle threshold", func(c *Config) { c.Writer.CycleRotationThreshold = 0 }, "writer.cycle_rotation_threshold"},
		{"bad size action", func(c *Config) { c.Writer.SizeTriggerAction = "drop" }, "writer.size_trigger_action"},
		{"buffer below threshold", func(c *Config) { c.Writer.MaxBufferBytes = 10 }, "writer.max_buffer_bytes"},
		{"unknown timezone", func(c *Config) { c.Writer.Timezone = "Mars/Olympus" }, "writer.timezone"},
		{"bad sink", func(c *Config) { c.Upload.Sink = "ftp" }, "upload.sink"},
		{"bad upload mode", func(c *Config) { c.Upload.Mode = "link" }, "upload.mode"},
		{"zero queue", func(c *Config) { c.Upload.QueueSize = 0 }, "upload.queue_size"},
		{"bad driver", func(c *Config) { c.Upload.Ledger.Driver = "postgres" }, "upload.ledger.driver"},
		{"negative retention", func(c *Config) { c.Upload.Retention.Days = -1 }, "upload.retention.days"},
		{"bad schedule", func(c *Config) {
			c.Upload.Retention.Days = 7
			c.Upload.Retention.Schedule = "every tuesday"
		}, "upload.retention.schedule"},
		{"retention without ledger", func(c *Config) {
			c.Upload.Retention.Days = 7
			c.Upload.Ledger.Enabled = false
		}, "upload.retention.days"},
		{"bad level", func(c *Config) { c.Telemetry.Logging.Level = "trace" }, "telemetry.logging.level"},
		{"bad format", func(c *Config) { c.Telemetry.Logging.Format = "xml" }, "telemetry.logging.format"},
		{"bad redact pattern", func(c *Config) {
			c.Telemetry.Logging.RedactPatterns = []RedactPattern{{Name: "x", Pattern: "("}}
		}, "telemetry.logging.redact_patterns[0].pattern"},
		{"relative metrics path", func(c *Config) { c.Telemetry.Metrics.Path = "metrics" }, "telemetry.metrics.path"},
		{"tracing without endpoint", func(c *Config) { c.Telemetry.Tracing.Enabled = true }, "telemetry.tracing.endpoint"},
		{"sample ratio", func(c *Config) { c.Telemetry.Tracing.SampleRatio = 1.5 }, "telemetry.tracing.sample_ratio"},
		{"bad listen address", func(c *Config) { c.Admin.ListenAddress = "localhost" }, "admin.listen_address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Validate() error = nil, want error")
			}

			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %T, want ValidationError", err)
			}
			if !verr.HasField(tt.field) {
				t.Errorf("Validate() fields = %v, want %s", verr.Errors, tt.field)
			}
		})
	}
}

func TestValidate_DisabledSectionsSkipped(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Admin.Enabled = false
	cfg.Admin.ListenAddress = "nonsense"
	cfg.Upload.Ledger.Enabled = false
	cfg.Upload.Ledger.Driver = "postgres"

	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestValidationError_Error(t *testing.T) {
	single := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}}}
	if got := single.Error(); got != "configuration validation failed: a: bad" {
		t.Errorf("Error() = %q", got)
	}

	multi := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}, {Field: "b", Message: "worse"}}}
	if got := multi.Error(); !strings.Contains(got, "2 errors") || !strings.Contains(got, "b: worse") {
		t.Errorf("Error() = %q", got)
	}
}

func TestLoadLocation(t *testing.T) {
	for _, name := range []string{"", "Local", "UTC"} {
		if _, err := LoadLocation(name); err != nil {
			t.Errorf("LoadLocation(%q) error = %v", name, err)
		}
	}
}
