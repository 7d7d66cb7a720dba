// Package productid derives stable product IDs for catalog rows that carry none.
package productid

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const prefix = "sku:"

// Derive returns an ID computed from the product's identifying text.
// Case and surrounding whitespace are ignored, so re-importing the same row yields the same ID.
func Derive(name, brand, category string) string {
	parts := []string{name, brand, category}
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return prefix + hex.EncodeToString(hash[:12])
}

// IsDerived reports whether id was produced by Derive.
func IsDerived(id string) bool {
	return strings.HasPrefix(id, prefix)
}
