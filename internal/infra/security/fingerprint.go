package security

import (
	"crypto/sha256"
	"encoding/hex"
)

// FingerprintToken derives the store key for an encoded token: a full SHA-256
// hex digest. The fingerprint bounds key length and keeps the raw credential
// out of store keys and logs; truncation is deliberately avoided since
// prefix collisions across independently issued tokens would corrupt
// revocation state.
func FingerprintToken(encoded string) string {
	sum := sha256.Sum256([]byte(encoded))
	return hex.EncodeToString(sum[:])
}
