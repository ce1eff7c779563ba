// Package checksum derives SHA-256 fingerprints for spec documents and
// project paths.
package checksum

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Short returns the first n hex characters of Sum(data).
func Short(data []byte, n int) string {
	s := Sum(data)
	if n <= 0 || n > len(s) {
		return s
	}
	return s[:n]
}

// Matches reports whether sum is the digest of data.
func Matches(data []byte, sum string) bool {
	return subtle.ConstantTimeCompare([]byte(Sum(data)), []byte(sum)) == 1
}
