package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewCache verifies that NewCache initializes correctly
func TestNewCache(t *testing.T) {
	cache, err := NewCache[string, int](0)
	require.NoError(t, err)
	require.NotNil(t, cache, "NewCache returned nil")

	// a non-positive size falls back to the default bound
	for i := 0; i <= DefaultSize; i++ {
		cache.SetItem(fmt.Sprint(i), i)
	}
	_, ok := cache.GetItem("0")
	assert.False(t, ok)
	_, ok = cache.GetItem(fmt.Sprint(DefaultSize))
	assert.True(t, ok)
}

// TestCacheItemOperations tests the item-related operations
func TestCacheItemOperations(t *testing.T) {
	cache, err := NewCache[uint64, string](8)
	require.NoError(t, err)

	_, ok := cache.GetItem(1)
	assert.False(t, ok)

	cache.SetItem(1, "first")
	v, ok := cache.GetItem(1)
	require.True(t, ok)
	assert.Equal(t, "first", v)

	// last write wins
	cache.SetItem(1, "second")
	v, _ = cache.GetItem(1)
	assert.Equal(t, "second", v)
}

func TestCacheEviction(t *testing.T) {
	cache, err := NewCache[int, int](2)
	require.NoError(t, err)

	cache.SetItem(1, 1)
	cache.SetItem(2, 2)
	_, _ = cache.GetItem(1) // 2 becomes the oldest
	cache.SetItem(3, 3)

	_, ok := cache.GetItem(1)
	assert.True(t, ok)
	_, ok = cache.GetItem(2)
	assert.False(t, ok)
	_, ok = cache.GetItem(3)
	assert.True(t, ok)
}

// TestCacheConcurrency tests concurrent access to the cache
func TestCacheConcurrency(t *testing.T) {
	cache, err := NewCache[string, int](1000)
	require.NoError(t, err)
	const goroutines = 10
	const ops = 100

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < ops; j++ {
				key := fmt.Sprintf("%d-%d", id, j)
				cache.SetItem(key, j)
				_, _ = cache.GetItem(key)
			}
		}(i)
	}
	wg.Wait()
	for i := 0; i < goroutines; i++ {
		for j := 0; j < ops; j++ {
			v, ok := cache.GetItem(fmt.Sprintf("%d-%d", i, j))
			require.True(t, ok)
			assert.Equal(t, j, v)
		}
	}
}
