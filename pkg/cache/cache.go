package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is the number of entries kept when no size is configured.
const DefaultSize = 4096

// Cache is a bounded, concurrency-safe cache of items keyed by K.
// The least recently used entry is evicted once the size limit is reached.
type Cache[K comparable, V any] struct {
	items *lru.Cache[K, V]
}

// NewCache returns a new Cache holding at most size entries.
// A non-positive size falls back to DefaultSize.
func NewCache[K comparable, V any](size int) (*Cache[K, V], error) {
	if size <= 0 {
		size = DefaultSize
	}
	items, err := lru.New[K, V](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	return &Cache[K, V]{items: items}, nil
}

// GetItem returns the item stored under key.
func (c *Cache[K, V]) GetItem(key K) (V, bool) {
	return c.items.Get(key)
}

// SetItem stores item under key, replacing any previous value.
func (c *Cache[K, V]) SetItem(key K, item V) {
	c.items.Add(key, item)
}
