package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a short random hex ID for turn and media keys.
func NewID() string {
	b := make([]byte, 12)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
