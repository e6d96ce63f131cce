// Package scanner defines the boundary to the radio scanning subsystem.
//
// The subsystem itself (platform Bluetooth stack, consent prompts, radio
// enablement) lives outside this module. A Scanner starts and stops delivery of
// advertisement callbacks; every callback carries one Event. Failures caused by
// a missing capability are reported as *PreconditionError so the caller can ask
// a PreconditionHandler to remediate and retry later.
//
// ReplayScanner is a Scanner that replays advertisements from a fixture file,
// used when no platform radio is bound and in end-to-end tests.
package scanner
