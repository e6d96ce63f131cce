// Package config provides configuration management for beaconlog.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. Every field has a default,
// so an empty file yields a runnable configuration.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("beaconlog.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("beaconlog.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention BEACONLOG_SECTION_FIELD.
// For example:
//
//   - BEACONLOG_WRITER_DIRECTORY overrides writer.directory
//   - BEACONLOG_FILTER_HASH_KEY overrides filter.hash_key
//   - BEACONLOG_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Hot Reload
//
// Watcher observes the configuration file with fsnotify and hands each valid
// new configuration to a callback. Only filter.acceptance_rssi_floor is
// applied to a running pipeline; other changes take effect on restart.
//
// # Example Configuration
//
//	scan:
//	  scan_cadence_seconds: 30
//	  mode: "low_latency"
//
//	filter:
//	  mode: "strict"
//
//	writer:
//	  directory: "/var/lib/beaconlog/logs"
//	  size_flush_threshold_bytes: 2048
//	  cycle_rotation_threshold: 60
//
//	upload:
//	  sink: "directory"
//	  directory: "/var/lib/beaconlog/outbox"
package config
