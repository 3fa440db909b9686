package geocode

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/example/hangr/internal/geo"
)

// cacheDecimals rounds coordinates to roughly 100 m before keying the cache.
const cacheDecimals = 3

// Cached memoises successful resolutions of an underlying Resolver. Failures
// are not cached so a flaky provider is retried on the next request.
type Cached struct {
	next  Resolver
	cache *expirable.LRU[geo.Point, string]
}

// NewCached wraps next with an expiring LRU of the given size and TTL.
func NewCached(next Resolver, size int, ttl time.Duration) *Cached {
	if size <= 0 {
		size = 1024
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cached{next: next, cache: expirable.NewLRU[geo.Point, string](size, nil, ttl)}
}

// City implements Resolver.
func (c *Cached) City(ctx context.Context, p geo.Point) (string, error) {
	key := p.Rounded(cacheDecimals)
	if city, ok := c.cache.Get(key); ok {
		return city, nil
	}
	city, err := c.next.City(ctx, p)
	if err != nil {
		return "", err
	}
	c.cache.Add(key, city)
	return city, nil
}

// Len returns the number of cached entries.
func (c *Cached) Len() int {
	return c.cache.Len()
}
