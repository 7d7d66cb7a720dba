package recommend

import (
	"container/list"
	"sync"

	"github.com/hyperjump/kaimono/internal/models"
)

// ResultCache is an LRU cache of recommendation lists. A capacity of zero or less disables it.
// Values are copied on the way in and out, so callers own what they pass and receive.
type ResultCache struct {
	capacity int
	cache    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	key   string
	value []*models.Recommendation
}

// NewResultCache creates a new cache with the given capacity.
func NewResultCache(capacity int) *ResultCache {
	return &ResultCache{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Get returns the cached recommendations for key if present.
func (c *ResultCache) Get(key string) ([]*models.Recommendation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		return models.CloneRecommendations(elem.Value.(*cacheEntry).value), true
	}
	return nil, false
}

// Set stores value for key, evicting the least recently used entry if at capacity.
func (c *ResultCache) Set(key string, value []*models.Recommendation) {
	if c.capacity <= 0 {
		return
	}
	value = models.CloneRecommendations(value)
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}

	elem := c.lru.PushFront(&cacheEntry{key: key, value: value})
	c.cache[key] = elem

	if c.lru.Len() > c.capacity {
		if oldest := c.lru.Back(); oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Purge drops every entry.
func (c *ResultCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]*list.Element)
	c.lru.Init()
}

// Len returns the number of cached entries.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
