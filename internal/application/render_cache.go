package application

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// renderCache keeps recently rendered share artefacts so repeated downloads
// of the same plan do not redraw the image. The LRU bounds the size; expiry
// follows the injected clock.
type renderCache struct {
	now     func() time.Time
	ttl     time.Duration
	entries *expirable.LRU[string, renderCacheEntry]
}

type renderCacheEntry struct {
	data      []byte
	expiresAt time.Time
}

func newRenderCache(ttl time.Duration, maxEntries int, now func() time.Time) *renderCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 64
	}
	if now == nil {
		now = time.Now
	}
	return &renderCache{
		now:     now,
		ttl:     ttl,
		entries: expirable.NewLRU[string, renderCacheEntry](maxEntries, nil, ttl),
	}
}

func (c *renderCache) Get(key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	entry, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expiresAt) {
		c.entries.Remove(key)
		return nil, false
	}
	return entry.data, true
}

// Store keeps data for the cache TTL. Callers must not modify data afterwards.
func (c *renderCache) Store(key string, data []byte) {
	if c == nil {
		return
	}
	c.entries.Add(key, renderCacheEntry{data: data, expiresAt: c.now().Add(c.ttl)})
}

func (c *renderCache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}
