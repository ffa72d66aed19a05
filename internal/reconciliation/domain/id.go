package reconciliation

import (
	"crypto/rand"
	"encoding/hex"
)

// NewSessionID generates a random session identifier.
func NewSessionID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return "recon-" + hex.EncodeToString(buf)
}

// NewResultID generates a random result identifier.
func NewResultID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return "result-" + hex.EncodeToString(buf)
}
