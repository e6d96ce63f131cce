// Package hashcodec turns raw device identifiers into opaque tokens and
// encodes advertisement payloads as hex text.
//
// # Privacy
//
// A device token is the hex-encoded SHA-256 digest of the identifier bytes.
// When a Codec is built with a key the digest is an HMAC-SHA256 instead, which
// keeps the small 48-bit address space of Bluetooth hardware addresses from
// being enumerated offline. Either way the raw identifier never appears in a
// log file.
//
// # Usage
//
//	codec := hashcodec.New(nil)
//	token := codec.Hash([]byte("AA:BB:CC:DD:EE:FF")) // 64 lowercase hex chars
//	payload := hashcodec.HexEncode([]byte{0x02, 0x01, 0x06}) // "020106"
package hashcodec
