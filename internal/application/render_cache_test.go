package application

import (
	"testing"
	"time"
)

func TestRenderCacheExpiresEntries(t *testing.T) {
	current := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	cache := newRenderCache(time.Second, 4, func() time.Time { return current })

	cache.Store("key", []byte("png"))
	if data, ok := cache.Get("key"); !ok || string(data) != "png" {
		t.Fatalf("expected cache hit before expiry, got %q %v", data, ok)
	}

	current = current.Add(2 * time.Second)
	if _, ok := cache.Get("key"); ok {
		t.Fatalf("expected cache entry to expire")
	}
}

func TestRenderCacheEvictsLeastRecentlyUsed(t *testing.T) {
	current := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	cache := newRenderCache(time.Minute, 2, func() time.Time { return current })

	cache.Store("a", []byte("1"))
	cache.Store("b", []byte("2"))
	if _, ok := cache.Get("a"); !ok {
		t.Fatalf("expected a to be cached")
	}
	cache.Store("c", []byte("3"))

	if cache.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", cache.Len())
	}
	if _, ok := cache.Get("b"); ok {
		t.Fatalf("expected least recently used entry to be evicted")
	}
	if _, ok := cache.Get("a"); !ok {
		t.Fatalf("expected recently read entry to survive")
	}
	if _, ok := cache.Get("c"); !ok {
		t.Fatalf("expected newest entry to be cached")
	}
}

func TestRenderCacheNilSafe(t *testing.T) {
	var cache *renderCache
	cache.Store("key", nil)
	if _, ok := cache.Get("key"); ok {
		t.Fatalf("expected nil cache to miss")
	}
}
