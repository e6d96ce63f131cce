package record

import (
	"strconv"
	"strings"
	"time"
)

// Observation is one accepted advertisement sighting.
type Observation struct {
	Timestamp      time.Time
	DeviceToken    string
	SignalStrength int
	PayloadHex     string
}

// LogLine is the serialized form of an Observation.
type LogLine struct {
	// Timestamp is the observation time. It decides which calendar day's
	// file the line belongs to.
	Timestamp time.Time

	// Text is the newline-terminated record.
	Text string
}

// Len returns the size of the line in bytes.
func (l LogLine) Len() int {
	return len(l.Text)
}

// Line serializes the observation.
func (o Observation) Line() LogLine {
	var sb strings.Builder
	sb.Grow(len(o.DeviceToken) + len(o.PayloadHex) + 32)

	sb.WriteString(strconv.FormatInt(o.Timestamp.UnixMilli(), 10))
	sb.WriteByte(',')
	sb.WriteString(o.DeviceToken)
	sb.WriteByte(',')
	sb.WriteString(strconv.Itoa(o.SignalStrength))
	sb.WriteByte(',')
	sb.WriteString(o.PayloadHex)
	sb.WriteByte('\n')

	return LogLine{Timestamp: o.Timestamp, Text: sb.String()}
}
