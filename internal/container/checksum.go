package container

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// Digest returns the hex SHA-256 of a payload.
func Digest(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// DigestReader computes the hex SHA-256 of everything read from r.
// This is useful for large payloads copied straight from disk.
func DigestReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
