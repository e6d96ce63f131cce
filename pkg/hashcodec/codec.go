package hashcodec

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// TokenLength is the length in characters of every token returned by Hash.
const TokenLength = sha256.Size * 2

// Codec hashes device identifiers into fixed-length tokens.
// A Codec is immutable and safe for concurrent use.
type Codec struct {
	key []byte
}

// New creates a Codec. A nil or empty key selects a plain SHA-256 digest;
// otherwise tokens are HMAC-SHA256 digests under the key.
func New(key []byte) *Codec {
	c := &Codec{}
	if len(key) > 0 {
		c.key = append([]byte(nil), key...)
	}
	return c
}

// Keyed reports whether the codec uses a keyed digest.
func (c *Codec) Keyed() bool {
	return len(c.key) > 0
}

// Hash returns the lowercase hex token for identifier.
// The same identifier always yields the same token for a given codec.
func (c *Codec) Hash(identifier []byte) string {
	if len(c.key) == 0 {
		return Hash(identifier)
	}

	mac := hmac.New(sha256.New, c.key)
	mac.Write(identifier)
	return hex.EncodeToString(mac.Sum(nil))
}

// Hash returns the hex-encoded SHA-256 digest of identifier.
func Hash(identifier []byte) string {
	sum := sha256.Sum256(identifier)
	return hex.EncodeToString(sum[:])
}

// HexEncode returns b as lowercase hex, two digits per byte, no separators.
func HexEncode(b []byte) string {
	return hex.EncodeToString(b)
}
