package cache

import (
	"container/list"
	"sync"

	"github.com/a6b8/trackerAPI/errors"
)

type lruEntry[V any] struct {
	key   string
	value V
}

// lruCache evicts the least recently used entry once maxSize is exceeded.
// Eviction callbacks always run after the mutex is released.
type lruCache[V any] struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	order   *list.List // front = most recently used
	stats   Stats
	metrics *cacheMetrics
	evictFn EvictCallback[V]
}

func newLRUCache[V any](maxSize int, opts *cacheOptions[V]) (*lruCache[V], error) {
	var metrics *cacheMetrics
	if opts.metricsReg != nil {
		var err error
		metrics, err = newCacheMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "cache", "newLRUCache", "metrics registration")
		}
	}

	return &lruCache[V]{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		order:   list.New(),
		metrics: metrics,
		evictFn: opts.evictCallback,
	}, nil
}

func (c *lruCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		c.metrics.recordMiss()
		var zero V
		return zero, false
	}

	c.order.MoveToFront(element)
	c.stats.Hits++
	c.metrics.recordHit()
	return element.Value.(*lruEntry[V]).value, true
}

func (c *lruCache[V]) Set(key string, value V) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	c.mu.Lock()
	c.stats.Sets++
	c.metrics.recordSet()

	if element, ok := c.items[key]; ok {
		element.Value.(*lruEntry[V]).value = value
		c.order.MoveToFront(element)
		c.mu.Unlock()
		return false, nil
	}

	c.items[key] = c.order.PushFront(&lruEntry[V]{key: key, value: value})

	var evicted []lruEntry[V]
	for len(c.items) > c.maxSize {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		evicted = append(evicted, *c.removeElement(oldest))
		c.stats.Evictions++
		c.metrics.recordEviction()
	}
	c.updateSize()
	c.mu.Unlock()

	c.notifyEvicted(evicted)
	return true, nil
}

func (c *lruCache[V]) Delete(key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	c.mu.Lock()
	element, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		return false, nil
	}
	entry := c.removeElement(element)
	c.stats.Deletes++
	c.metrics.recordDelete()
	c.updateSize()
	c.mu.Unlock()

	c.notifyEvicted([]lruEntry[V]{*entry})
	return true, nil
}

func (c *lruCache[V]) Clear() error {
	c.mu.Lock()
	var evicted []lruEntry[V]
	if c.evictFn != nil {
		evicted = make([]lruEntry[V], 0, len(c.items))
		for element := c.order.Back(); element != nil; element = element.Prev() {
			evicted = append(evicted, *element.Value.(*lruEntry[V]))
		}
	}
	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.updateSize()
	c.mu.Unlock()

	c.notifyEvicted(evicted)
	return nil
}

func (c *lruCache[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *lruCache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.items))
	for element := c.order.Front(); element != nil; element = element.Next() {
		keys = append(keys, element.Value.(*lruEntry[V]).key)
	}
	return keys
}

func (c *lruCache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Close is a no-op; the LRU cache owns no goroutines.
func (c *lruCache[V]) Close() error {
	return nil
}

// removeElement must be called with the mutex held.
func (c *lruCache[V]) removeElement(element *list.Element) *lruEntry[V] {
	entry := element.Value.(*lruEntry[V])
	delete(c.items, entry.key)
	c.order.Remove(element)
	return entry
}

// updateSize must be called with the mutex held.
func (c *lruCache[V]) updateSize() {
	c.stats.Size = len(c.items)
	c.stats.MaxSize = max(c.stats.MaxSize, c.stats.Size)
	c.metrics.updateSize(len(c.items))
}

func (c *lruCache[V]) notifyEvicted(entries []lruEntry[V]) {
	if c.evictFn == nil {
		return
	}
	for _, entry := range entries {
		c.evictFn(entry.key, entry.value)
	}
}
