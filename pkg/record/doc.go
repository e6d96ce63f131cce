// Package record converts raw advertisement callbacks into canonical log lines.
//
// A Processor applies the acceptance filter (payload present, signal at or
// above the RSSI floor) and serializes accepted observations as
//
//	<timestamp_ms>,<device_token_hex>,<signal_strength_int>,<payload_hex>
//
// where the device token comes from package hashcodec. The floor can be
// changed at runtime with SetFloor, which is how configuration reloads reach a
// running pipeline.
package record
