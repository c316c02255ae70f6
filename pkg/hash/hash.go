package hash

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// SHA256Hex returns the hex-encoded SHA256 hash of the input string.
func SHA256Hex(input string) string {
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:])
}

// SHA256HexBytes returns the hex-encoded SHA256 hash of raw bytes.
func SHA256HexBytes(input []byte) string {
	h := sha256.Sum256(input)
	return hex.EncodeToString(h[:])
}

// Bucket100 maps the input deterministically onto [0, 100) by hashing it and
// reducing the first 8 bytes. Used for stable percentage-band assignments.
func Bucket100(input string) int {
	h := sha256.Sum256([]byte(input))
	return int(binary.BigEndian.Uint64(h[:8]) % 100)
}
