// Package cache stores serialized feeds for a short time so repeated
// searches and the trending endpoint do not hit every marketplace.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Cache is a byte-oriented TTL cache.
type Cache interface {
	// Get reports a miss as (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// Key builds a stable cache key from its parts. Parts are lower-cased and
// trimmed so "Camera " and "camera" share an entry.
func Key(namespace string, parts ...string) string {
	h := xxhash.New()
	for _, p := range parts {
		h.WriteString(strings.ToLower(strings.TrimSpace(p)))
		h.WriteString("\x00")
	}
	return fmt.Sprintf("bidscout:%s:%016x", namespace, h.Sum64())
}
