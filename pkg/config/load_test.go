package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/beaconlog/pkg/record"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "beaconlog.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig_Empty(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Scan.CadenceSeconds != DefaultScanCadenceSeconds {
		t.Errorf("Scan.CadenceSeconds = %d, want %d", cfg.Scan.CadenceSeconds, DefaultScanCadenceSeconds)
	}
	if !cfg.Scan.Continuous {
		t.Error("Scan.Continuous = false, want true")
	}
	if cfg.Filter.Floor() != record.PermissiveFloor {
		t.Errorf("Filter.Floor() = %d, want %d", cfg.Filter.Floor(), record.PermissiveFloor)
	}
	if !cfg.Upload.DrainOnClose {
		t.Error("Upload.DrainOnClose = false, want true")
	}
	if !cfg.Upload.Ledger.Enabled {
		t.Error("Upload.Ledger.Enabled = false, want true")
	}
}

func TestLoadConfig_Values(t *testing.T) {
	path := writeConfig(t, `
scan:
  scan_cadence_seconds: 10
  continuous: false
  mode: balanced
  filters: ["AA:BB:CC:DD:EE:FF"]
  stop_timeout: 2s
filter:
  mode: strict
writer:
  directory: /tmp/logs
  size_flush_threshold_bytes: 4096
  cycle_rotation_threshold: 2
  size_trigger_action: rotate
  timezone: UTC
upload:
  sink: none
  drain_on_close: false
  ledger:
    enabled: false
telemetry:
  logging:
    level: debug
    format: text
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Scan.Cadence() != 10*time.Second {
		t.Errorf("Scan.Cadence() = %v, want 10s", cfg.Scan.Cadence())
	}
	if cfg.Scan.Continuous {
		t.Error("Scan.Continuous = true, want false")
	}
	if cfg.Scan.Mode != "balanced" {
		t.Errorf("Scan.Mode = %q, want balanced", cfg.Scan.Mode)
	}
	if len(cfg.Scan.Filters) != 1 {
		t.Errorf("Scan.Filters = %v, want one entry", cfg.Scan.Filters)
	}
	if cfg.Scan.StopTimeout != 2*time.Second {
		t.Errorf("Scan.StopTimeout = %v, want 2s", cfg.Scan.StopTimeout)
	}
	if cfg.Filter.Floor() != record.StrictFloor {
		t.Errorf("Filter.Floor() = %d, want %d", cfg.Filter.Floor(), record.StrictFloor)
	}
	if cfg.Writer.SizeFlushThresholdBytes != 4096 {
		t.Errorf("Writer.SizeFlushThresholdBytes = %d, want 4096", cfg.Writer.SizeFlushThresholdBytes)
	}
	if cfg.Writer.CycleRotationThreshold != 2 {
		t.Errorf("Writer.CycleRotationThreshold = %d, want 2", cfg.Writer.CycleRotationThreshold)
	}
	if cfg.Writer.SizeTriggerAction != "rotate" {
		t.Errorf("Writer.SizeTriggerAction = %q, want rotate", cfg.Writer.SizeTriggerAction)
	}
	if cfg.Upload.DrainOnClose {
		t.Error("Upload.DrainOnClose = true, want false")
	}
	if cfg.Upload.Ledger.Enabled {
		t.Error("Upload.Ledger.Enabled = true, want false")
	}
	if cfg.Telemetry.Logging.Format != "text" {
		t.Errorf("Telemetry.Logging.Format = %q, want text", cfg.Telemetry.Logging.Format)
	}
}

func TestLoadConfig_ExplicitFloorWinsOverMode(t *testing.T) {
	path := writeConfig(t, `
filter:
  mode: strict
  acceptance_rssi_floor: -80
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Filter.Floor() != -80 {
		t.Errorf("Filter.Floor() = %d, want -80", cfg.Filter.Floor())
	}
}

func TestLoadConfig_ExplicitZeroFloor(t *testing.T) {
	path := writeConfig(t, `
filter:
  mode: strict
  acceptance_rssi_floor: 0
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Filter.AcceptanceRSSIFloor == nil {
		t.Fatal("Filter.AcceptanceRSSIFloor = nil, want explicit 0")
	}
	if cfg.Filter.Floor() != 0 {
		t.Errorf("Filter.Floor() = %d, want 0", cfg.Filter.Floor())
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("LoadConfig() error = nil, want error")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadConfig() error = %v, want os.ErrNotExist", err)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "scan: [unterminated")

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("LoadConfig() error = nil, want parse error")
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
writer:
  size_trigger_action: explode
`)

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("LoadConfig() error = nil, want validation error")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("LoadConfig() error = %T, want ValidationError", err)
	}
	if !verr.HasField("writer.size_trigger_action") {
		t.Errorf("ValidationError missing writer.size_trigger_action: %v", verr)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
writer:
  directory: /from/file
`)

	t.Setenv("BEACONLOG_WRITER_DIRECTORY", "/from/env")
	t.Setenv("BEACONLOG_FILTER_ACCEPTANCE_RSSI_FLOOR", "-90")
	t.Setenv("BEACONLOG_SCAN_CONTINUOUS", "false")
	t.Setenv("BEACONLOG_SCAN_FILTERS", "AA:AA:AA:AA:AA:AA, BB:BB:BB:BB:BB:BB")
	t.Setenv("BEACONLOG_UPLOAD_TIMEOUT", "5s")
	t.Setenv("BEACONLOG_WRITER_CYCLE_ROTATION_THRESHOLD", "not-a-number")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}

	if cfg.Writer.Directory != "/from/env" {
		t.Errorf("Writer.Directory = %q, want /from/env", cfg.Writer.Directory)
	}
	if cfg.Filter.Floor() != -90 {
		t.Errorf("Filter.Floor() = %d, want -90", cfg.Filter.Floor())
	}
	if cfg.Scan.Continuous {
		t.Error("Scan.Continuous = true, want false")
	}
	if len(cfg.Scan.Filters) != 2 || cfg.Scan.Filters[1] != "BB:BB:BB:BB:BB:BB" {
		t.Errorf("Scan.Filters = %v", cfg.Scan.Filters)
	}
	if cfg.Upload.Timeout != 5*time.Second {
		t.Errorf("Upload.Timeout = %v, want 5s", cfg.Upload.Timeout)
	}
	// Unparseable values are ignored
	if cfg.Writer.CycleRotationThreshold != DefaultCycleRotationThreshold {
		t.Errorf("Writer.CycleRotationThreshold = %d, want %d", cfg.Writer.CycleRotationThreshold, DefaultCycleRotationThreshold)
	}
}

func TestLoadConfigWithEnvOverrides_Invalid(t *testing.T) {
	path := writeConfig(t, "")
	t.Setenv("BEACONLOG_UPLOAD_SINK", "s3")

	if _, err := LoadConfigWithEnvOverrides(path); err == nil {
		t.Fatal("LoadConfigWithEnvOverrides() error = nil, want validation error")
	}
}
