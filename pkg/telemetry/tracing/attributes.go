package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used on pipeline spans.
const (
	AttrRunID        = "beaconlog.run_id"
	AttrCycle        = "beaconlog.cycle"
	AttrScanMode     = "beaconlog.scan.mode"
	AttrFilePath     = "beaconlog.file.path"
	AttrFileDay      = "beaconlog.file.day"
	AttrFileSequence = "beaconlog.file.sequence"
	AttrFileBytes    = "beaconlog.file.bytes"
	AttrFailureKind  = "beaconlog.failure.kind"
)

// FileAttributes describes a log file on a span.
func FileAttributes(path, day string, sequence int, bytes int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrFilePath, path),
		attribute.String(AttrFileDay, day),
		attribute.Int(AttrFileSequence, sequence),
		attribute.Int64(AttrFileBytes, bytes),
	}
}

// CycleAttributes describes a scan cycle on a span.
func CycleAttributes(runID string, cycle int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrRunID, runID),
		attribute.Int64(AttrCycle, cycle),
	}
}

// SetError marks the span as failed with msg and records err. A nil err
// does nothing.
func SetError(span trace.Span, err error, msg string) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
}
