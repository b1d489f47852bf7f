package cache

import (
	"context"
	"sync"

	"github.com/ricesearch/contact-eval/internal/contact"
)

// MemoryCache is a bounded in-process LRU cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string][]contact.Pair
	maxSize int
	order   []string // LRU order, oldest first
	hits    int64
	misses  int64
}

// NewMemoryCache creates a cache holding at most maxSize distance lists.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 64
	}

	return &MemoryCache{
		entries: make(map[string][]contact.Pair),
		maxSize: maxSize,
		order:   make([]string, 0, maxSize),
	}
}

// Get retrieves a distance list. The returned slice is a copy.
func (c *MemoryCache) Get(_ context.Context, key string) ([]contact.Pair, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pairs, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false, nil
	}

	c.hits++
	c.moveToEnd(key)
	return clonePairs(pairs), true, nil
}

// Set stores a copy of pairs.
func (c *MemoryCache) Set(_ context.Context, key string, pairs []contact.Pair) error {
	stored := clonePairs(pairs)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = stored
		c.moveToEnd(key)
		return nil
	}

	// Evict if at capacity
	for len(c.entries) >= c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = stored
	c.order = append(c.order, key)
	return nil
}

// moveToEnd marks key as most recently used (must hold lock).
func (c *MemoryCache) moveToEnd(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			c.order = append(c.order, key)
			return
		}
	}
}

// Stats returns cache statistics.
func (c *MemoryCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Stats{
		Size:    len(c.entries),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
	}
}

// Close is a no-op.
func (c *MemoryCache) Close() error {
	return nil
}
