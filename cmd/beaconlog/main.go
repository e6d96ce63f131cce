// Beaconlog records nearby BLE advertisements into rotating log files and
// hands finalized files to durable storage.
//
// A scan controller starts and stops the radio on a fixed cadence. Accepted
// observations are buffered, written into per-day numbered files, and every
// finalized file is dispatched to an upload sink in the background.
//
// Usage:
//
//	# Start recording with the default configuration file
//	beaconlog run
//
//	# Replay a fixture instead of a radio
//	beaconlog run --replay testdata/replay.csv --log-dir /tmp/logs
//
//	# Check a configuration file
//	beaconlog validate --config /etc/beaconlog/config.yaml
//
//	# Inspect and prune the upload ledger
//	beaconlog uploads list --status failed
//	beaconlog uploads prune --days 14
package main

func main() {
	Execute()
}
