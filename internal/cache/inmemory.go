package cache

import (
	"context"
	"strings"
	"time"

	goCache "github.com/patrickmn/go-cache"
)

// DefaultExpiration is the fallback expiration for entries set without an
// explicit TTL.
const DefaultExpiration = 30 * time.Second

// DefaultCleanupInterval is how often expired items are swept out.
const DefaultCleanupInterval = 5 * time.Minute

// InMemoryCache implements Cache using github.com/patrickmn/go-cache. It
// carries no package-level state — every instance is constructed by
// NewInMemoryCache and owned by whoever internal/broker injects it into,
// replacing the teacher's config.NewConfig()-calling global singleton
// (DESIGN NOTES: "module-level globals -> injected aggregate").
type InMemoryCache struct {
	cache   *goCache.Cache
	enabled bool
}

// NewInMemoryCache constructs a cache. enabled lets CacheConfig.Enabled
// turn caching off entirely (e.g. in tests) without callers branching on it.
func NewInMemoryCache(enabled bool) *InMemoryCache {
	return &InMemoryCache{
		cache:   goCache.New(DefaultExpiration, DefaultCleanupInterval),
		enabled: enabled,
	}
}

func (c *InMemoryCache) Get(_ context.Context, key string) (interface{}, bool) {
	if !c.enabled {
		return nil, false
	}
	return c.cache.Get(key)
}

func (c *InMemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) {
	if !c.enabled {
		return
	}
	c.cache.Set(key, value, expiration)
}

func (c *InMemoryCache) Delete(_ context.Context, key string) {
	if !c.enabled {
		return
	}
	c.cache.Delete(key)
}

func (c *InMemoryCache) DeleteByPrefix(_ context.Context, prefix string) {
	if !c.enabled {
		return
	}
	for k := range c.cache.Items() {
		if strings.HasPrefix(k, prefix) {
			c.cache.Delete(k)
		}
	}
}

func (c *InMemoryCache) Flush(_ context.Context) {
	if !c.enabled {
		return
	}
	c.cache.Flush()
}
