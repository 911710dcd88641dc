// Package cache provides a TTL keyed store for candidate search results.
package cache

import (
	"fmt"
	"strings"
	"time"

	"shopkit/internal/core"
)

// DefaultTTL is how long a cached candidate list stays valid.
const DefaultTTL = 45 * time.Minute

// Store defines the interface for candidate caching.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get retrieves the candidates cached under key.
	// Returns nil, false when the key was never set or the entry has
	// expired; callers cannot distinguish the two cases.
	Get(key string) ([]core.Candidate, bool)

	// Set stores candidates under key, unconditionally overwriting any
	// existing entry with a fresh timestamp.
	Set(key string, candidates []core.Candidate)
}

// Key builds the normalized cache key for a category fetch:
// lower-cased category plus the per-category fetch limit.
func Key(category string, limit int) string {
	return fmt.Sprintf("%s:%d", strings.ToLower(strings.TrimSpace(category)), limit)
}
