package bitmap

import (
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// Cache is an LRU of encoded bitmaps bounded by entry count and by the total
// length of the stored strings. One mutex guards the list and the byte total.
type Cache struct {
	mu       sync.Mutex
	lru      *simplelru.LRU[string, string]
	bytes    int
	maxBytes int
}

// NewCache creates a cache holding at most entries values and maxBytes of
// encoded data. maxBytes <= 0 disables the byte bound.
func NewCache(entries, maxBytes int) (*Cache, error) {
	c := &Cache{maxBytes: maxBytes}
	l, err := simplelru.NewLRU[string, string](entries, func(_ string, v string) {
		c.bytes -= len(v)
	})
	if err != nil {
		return nil, err
	}
	c.lru = l
	return c, nil
}

// Get returns the cached value and marks it recently used.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Get(key)
}

// Put stores value under key, evicting least recently used entries until
// both bounds hold. Values larger than the byte bound are not stored.
func (c *Cache) Put(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maxBytes > 0 && len(value) > c.maxBytes {
		return
	}
	if old, ok := c.lru.Peek(key); ok {
		c.bytes -= len(old)
	}
	c.lru.Add(key, value)
	c.bytes += len(value)
	for c.maxBytes > 0 && c.bytes > c.maxBytes {
		if _, _, ok := c.lru.RemoveOldest(); !ok {
			break
		}
	}
}

// Purge drops every entry. It is the memory-pressure response.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
	c.bytes = 0
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Bytes returns the total length of the cached values.
func (c *Cache) Bytes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytes
}
