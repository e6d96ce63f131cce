package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"mercator-hq/beaconlog/pkg/cli"
)

func runValidate(t *testing.T, file, format string) (string, error) {
	t.Helper()
	origFile := cfgFile
	t.Cleanup(func() {
		cfgFile = origFile
		validateFlags.format = "text"
		validateCmd.SetOut(nil)
	})

	cfgFile = file
	validateFlags.format = format
	var buf bytes.Buffer
	validateCmd.SetOut(&buf)

	err := validateConfig(validateCmd, nil)
	return buf.String(), err
}

func TestValidateConfig_Valid(t *testing.T) {
	out, err := runValidate(t, "testdata/valid.yaml", "text")
	if err != nil {
		t.Fatalf("validateConfig() error = %v", err)
	}
	if !strings.Contains(out, "is valid (acceptance floor -98 dBm)") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestValidateConfig_InvalidListsFields(t *testing.T) {
	out, err := runValidate(t, "testdata/invalid.yaml", "text")

	var cfgErr *cli.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want ConfigError", err)
	}
	if cli.ExitCode(err) != cli.ExitConfig {
		t.Errorf("ExitCode() = %d, want %d", cli.ExitCode(err), cli.ExitConfig)
	}
	for _, field := range []string{"scan.scan_cadence_seconds", "scan.mode", "writer.size_trigger_action"} {
		if !strings.Contains(out, field) {
			t.Errorf("output missing field %q:\n%s", field, out)
		}
	}
}

func TestValidateConfig_JSON(t *testing.T) {
	out, err := runValidate(t, "testdata/invalid.yaml", "json")
	if err == nil {
		t.Fatal("expected error for invalid config")
	}

	var report validationReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if report.Valid || len(report.Errors) < 3 {
		t.Errorf("report = %+v", report)
	}
}

func TestValidateConfig_MissingFile(t *testing.T) {
	_, err := runValidate(t, "testdata/nonexistent.yaml", "text")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
