// Package controller drives the scan cadence.
//
// A Controller alternates the scan subsystem between Idle and Scanning on a
// cron timer and routes every callback event through the record processor
// into the buffered writer, in arrival order. Each Scanning to Idle
// transition closes a cycle: the writer flushes and evaluates the
// elapsed-cycle trigger. Files the writer finalizes are handed to the
// upload dispatcher without blocking.
//
// A start that fails on a missing precondition (radio disabled, consent
// missing) is reported to the PreconditionHandler and retried on the next
// tick. Shutdown is terminal and idempotent: it stops the subsystem,
// finalizes the open file and drains or abandons pending uploads.
package controller
