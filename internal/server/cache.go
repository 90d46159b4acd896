package server

import (
	"sync"
	"time"

	"github.com/mj1618/rum-replay/internal/model"
	"github.com/mj1618/rum-replay/internal/platform"
)

// cacheEntry holds a cached window with its timestamp.
type cacheEntry struct {
	window    *model.Window
	timestamp time.Time
}

// WindowCache provides a TTL-based cache of windows keyed by UI source.
type WindowCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

// NewWindowCache creates a new cache. A ttl of 0 disables caching.
func NewWindowCache(ttl time.Duration) *WindowCache {
	return &WindowCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

// ReadWindow returns the cached window for source if within TTL, otherwise
// reads fresh. Cached windows are shared and must not be modified.
func (c *WindowCache) ReadWindow(source string, reader platform.Reader) (*model.Window, error) {
	if c.ttl == 0 {
		return reader.ReadWindow()
	}

	c.mu.Lock()
	if entry, ok := c.entries[source]; ok && time.Since(entry.timestamp) < c.ttl {
		win := entry.window
		c.mu.Unlock()
		return win, nil
	}
	c.mu.Unlock()

	win, err := reader.ReadWindow()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[source] = cacheEntry{window: win, timestamp: time.Now()}
	c.mu.Unlock()

	return win, nil
}

// Invalidate removes the entry for source.
func (c *WindowCache) Invalidate(source string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, source)
}

// InvalidateAll clears the entire cache.
func (c *WindowCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}
