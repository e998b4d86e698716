// Package hash provides deterministic content fingerprinting for
// evidence records. The digest is used for integrity verification, not
// secrecy: same input always yields the same output.
package hash

import (
	"github.com/ethereum/go-ethereum/crypto"
)

// Content returns the Keccak-256 digest of the given text as a
// 0x-prefixed, 64-character hex string. Any string input is valid.
func Content(content string) string {
	return crypto.Keccak256Hash([]byte(content)).Hex()
}

// Verify reports whether content hashes to the expected digest.
func Verify(content, digest string) bool {
	return Content(content) == digest
}
