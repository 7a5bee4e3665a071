// Package cache is a short-TTL, in-process read cache for data the broker
// re-fetches often and can tolerate briefly stale: panel server lists and
// panel health. It is intentionally not a general entity cache — the
// Entity Store (internal/store) is the system of record, this package only
// shields the panel from redundant GET traffic (§4.13, CacheConfig).
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Cache defines the interface for caching operations.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration)
	Delete(ctx context.Context, key string)
	DeleteByPrefix(ctx context.Context, prefix string)
	Flush(ctx context.Context)
}

// Predefined cache key prefixes for the entities this broker caches.
const (
	PrefixAvailableServers = "available_servers:v1:"
	PrefixPanelHealth      = "panel_health:v1:"
)

// GenerateKey creates a cache key from a prefix and a set of parameters,
// joining them with a colon.
func GenerateKey(prefix string, params ...interface{}) string {
	parts := make([]string, len(params)+1)
	parts[0] = prefix
	for i, param := range params {
		parts[i+1] = fmt.Sprintf("%v", param)
	}
	return strings.Join(parts, ":")
}
