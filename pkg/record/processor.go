package record

import (
	"sync/atomic"
	"time"

	"mercator-hq/beaconlog/pkg/hashcodec"
	"mercator-hq/beaconlog/pkg/scanner"
)

// Acceptance floors for the two filter modes.
const (
	PermissiveFloor = -100
	StrictFloor     = -98
)

// Rejection reasons returned by Evaluate.
const (
	RejectNone       = ""
	RejectNoPayload  = "no_payload"
	RejectWeakSignal = "weak_signal"
)

// FloorForMode returns the acceptance floor for a filter mode name.
func FloorForMode(mode string) (int, bool) {
	switch mode {
	case "", "permissive":
		return PermissiveFloor, true
	case "strict":
		return StrictFloor, true
	default:
		return 0, false
	}
}

// Processor filters raw events and builds log lines. It is safe for
// concurrent use.
type Processor struct {
	codec *hashcodec.Codec
	floor atomic.Int64
	now   func() time.Time
}

// NewProcessor creates a Processor with the given RSSI floor. Events with a
// signal strength below floor are rejected. A nil codec hashes with plain
// SHA-256.
func NewProcessor(codec *hashcodec.Codec, floor int) *Processor {
	if codec == nil {
		codec = hashcodec.New(nil)
	}
	p := &Processor{codec: codec, now: time.Now}
	p.floor.Store(int64(floor))
	return p
}

// Floor returns the current acceptance floor.
func (p *Processor) Floor() int {
	return int(p.floor.Load())
}

// SetFloor replaces the acceptance floor.
func (p *Processor) SetFloor(floor int) {
	p.floor.Store(int64(floor))
}

// Evaluate applies the acceptance filter and returns the observation, or the
// rejection reason.
func (p *Processor) Evaluate(ev scanner.Event) (Observation, string) {
	if ev.Payload == nil {
		return Observation{}, RejectNoPayload
	}
	if int64(ev.RSSI) < p.floor.Load() {
		return Observation{}, RejectWeakSignal
	}

	ts := ev.ArrivalTime
	if ts.IsZero() {
		ts = p.now()
	}

	return Observation{
		Timestamp:      ts,
		DeviceToken:    p.codec.Hash([]byte(ev.Address)),
		SignalStrength: ev.RSSI,
		PayloadHex:     hashcodec.HexEncode(ev.Payload),
	}, RejectNone
}

// Process returns the log line for ev, or false when the event is rejected.
func (p *Processor) Process(ev scanner.Event) (LogLine, bool) {
	obs, reason := p.Evaluate(ev)
	if reason != RejectNone {
		return LogLine{}, false
	}
	return obs.Line(), true
}
