package cache

import (
	"fmt"
	"strings"
)

// CacheKey identifies a cached page: the result set it belongs to and its page number.
type CacheKey struct {
	// Fingerprint identifies the query that produced the page (see query.Query.Fingerprint).
	// An empty fingerprint keys the page by number alone.
	Fingerprint string

	// Page is the 1-based page number.
	Page int
}

// String generates a deterministic cache key string.
// Format: isbnplus:fingerprint:p=N
//
// Example:
//
//	isbnplus:a=Tolkien:order=published:p=2
func (k CacheKey) String() string {
	parts := []string{"isbnplus"}

	if fp := strings.Trim(k.Fingerprint, ":"); fp != "" {
		parts = append(parts, fp)
	}

	parts = append(parts, fmt.Sprintf("p=%d", k.Page))

	return strings.Join(parts, ":")
}
