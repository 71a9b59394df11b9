package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a random identifier, optionally namespaced by a short
// prefix ("ds", "usr", ...).
func NewID(prefix string) string {
	buf := make([]byte, 12)
	_, _ = rand.Read(buf)
	suffix := hex.EncodeToString(buf)
	if prefix == "" {
		return suffix
	}
	return prefix + "_" + suffix
}
