package local

import (
	"container/list"
	"sync"

	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/internal/vector"
)

// DefaultCacheCapacity bounds the number of (index, store) pairs kept in
// memory.
const DefaultCacheCapacity = 16

// entry is one fully-loaded index directory. Entries are immutable once
// published; a reload publishes a new entry instead of mutating in place.
type entry struct {
	index *vector.FlatIndex
	store *models.DocumentStore
}

// entryCache is a bounded LRU of loaded indexes keyed by canonical
// directory path. Safe for concurrent use; eviction only happens on insert
// or explicit Clear, never on a timer.
type entryCache struct {
	capacity int
	entries  map[string]*list.Element
	order    *list.List
	mu       sync.Mutex
}

type cacheItem struct {
	key string
	val *entry
}

func newEntryCache(capacity int) *entryCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &entryCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (c *entryCache) get(key string) (*entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*cacheItem).val, true
}

// put publishes a fully-constructed entry. Concurrent readers either see
// the previous entry or this one, never a partial load.
func (c *entryCache) put(key string, val *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*cacheItem).val = val
		return
	}
	c.entries[key] = c.order.PushFront(&cacheItem{key: key, val: val})
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheItem).key)
	}
}

func (c *entryCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

func (c *entryCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
