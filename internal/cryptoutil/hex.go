// Package cryptoutil holds small helpers for key material handling.
package cryptoutil

import "encoding/hex"

// IsHexString reports whether s consists entirely of hexadecimal characters
// (0-9, a-f, A-F). It returns true for an empty string — callers should check
// length separately when a minimum size is required.
func IsHexString(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}

// KeyBytes returns the raw bytes of a signing key that may be given either
// as raw text or as a hex string. Hex is only assumed for even-length
// all-hex strings of 64+ characters, matching config validation.
func KeyBytes(key string) []byte {
	if len(key) >= 64 && len(key)%2 == 0 && IsHexString(key) {
		if decoded, err := hex.DecodeString(key); err == nil {
			return decoded
		}
	}
	return []byte(key)
}
