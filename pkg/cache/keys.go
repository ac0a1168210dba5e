package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Key builds a deterministic cache key: namespace prefix plus a hash of the
// normalized, pipe-joined parts. Normalization lower-cases each part and
// collapses all whitespace runs, so identical logical inputs always hash
// identically regardless of casing or spacing.
func Key(namespace string, parts ...string) string {
	normalized := make([]string, len(parts))
	for i, p := range parts {
		normalized[i] = normalizePart(p)
	}

	sum := sha256.Sum256([]byte(strings.Join(normalized, "|")))
	return namespace + ":" + hex.EncodeToString(sum[:])
}

func normalizePart(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
