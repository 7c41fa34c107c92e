package utils

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// Digest produces a stable hex digest over an ordered list of parts.
// Cache keys and checklist fingerprints are built from it; parts are
// joined with a unit separator so adjacent fields cannot collide once
// concatenated.
func Digest(parts ...string) string {
	sum := md5.Sum([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}
