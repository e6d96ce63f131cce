package config

import "testing"

func TestApplyDefaults_ZeroConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Writer.SizeFlushThresholdBytes != 2048 {
		t.Errorf("Writer.SizeFlushThresholdBytes = %d, want 2048", cfg.Writer.SizeFlushThresholdBytes)
	}
	if cfg.Writer.CycleRotationThreshold != 60 {
		t.Errorf("Writer.CycleRotationThreshold = %d, want 60", cfg.Writer.CycleRotationThreshold)
	}
	if cfg.Writer.SequenceBase != 1 {
		t.Errorf("Writer.SequenceBase = %d, want 1", cfg.Writer.SequenceBase)
	}
	if cfg.Scan.Mode != "low_latency" {
		t.Errorf("Scan.Mode = %q, want low_latency", cfg.Scan.Mode)
	}
	if cfg.Filter.AcceptanceRSSIFloor != nil {
		t.Errorf("Filter.AcceptanceRSSIFloor = %d, want unset", *cfg.Filter.AcceptanceRSSIFloor)
	}
	if cfg.Filter.Floor() != -100 {
		t.Errorf("Filter.Floor() = %d, want -100", cfg.Filter.Floor())
	}
	// Booleans are not touched by ApplyDefaults
	if cfg.Scan.Continuous {
		t.Error("Scan.Continuous = true, want false")
	}
}

func TestApplyDefaults_StrictFloor(t *testing.T) {
	cfg := &Config{Filter: FilterConfig{Mode: "strict"}}
	ApplyDefaults(cfg)

	if cfg.Filter.Floor() != -98 {
		t.Errorf("Filter.Floor() = %d, want -98", cfg.Filter.Floor())
	}
}

func TestApplyDefaults_BucketsNotShared(t *testing.T) {
	a := NewDefaultConfig()
	a.Telemetry.Metrics.DispatchDurationBuckets[0] = 99

	if DefaultDispatchDurationBuckets[0] == 99 {
		t.Error("ApplyDefaults shares the default bucket slice")
	}
}
