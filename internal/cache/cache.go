// Package cache provides a bounded in-memory LRU keyed by content hash.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// HashBytes returns the SHA-256 hex digest of data, the canonical cache key
// for request payloads.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

type entry struct {
	key   string
	value []byte
}

// Cache is a thread-safe LRU holding response payloads. Oldest entries are
// evicted once maxSize is exceeded.
type Cache struct {
	mu      sync.Mutex
	maxSize int
	order   *list.List // front = most recently used
	items   map[string]*list.Element
}

// New creates a cache holding at most maxSize entries.
func New(maxSize int) *Cache {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Cache{
		maxSize: maxSize,
		order:   list.New(),
		items:   make(map[string]*list.Element, maxSize),
	}
}

// Get returns the cached value for key, marking it most recently used.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).value, true
}

// Set stores value under key, evicting the least recently used entry when
// the cache is full.
func (c *Cache) Set(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*entry).value = value
		c.order.MoveToFront(el)
		return
	}

	c.items[key] = c.order.PushFront(&entry{key: key, value: value})

	if c.order.Len() > c.maxSize {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*entry).key)
		}
	}
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
