// Package checksum computes content digests used for snapshot dedupe and document etags.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Text is Sum for string content.
func Text(s string) string {
	return Sum([]byte(s))
}

