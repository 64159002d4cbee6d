package security

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashOneWay returns the hex-encoded SHA-256 of s. Deterministic; used for
// device fingerprints and session tokens at rest so raw values are never stored.
func HashOneWay(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}
