package journal

import (
	"container/list"
	"database/sql"
	"sync"
)

const runCacheSize = 256

type runCacheEntry struct {
	key   string
	value string
}

// runCache maps run ID prefixes to full IDs for one reader session. A
// cached prefix is not rechecked for ambiguity against runs added later.
type runCache struct {
	mu    sync.Mutex
	max   int
	ll    *list.List
	items map[string]*list.Element
}

func newRunCache(max int) *runCache {
	return &runCache{
		max:   max,
		ll:    list.New(),
		items: make(map[string]*list.Element),
	}
}

func (c *runCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		return el.Value.(runCacheEntry).value, true
	}
	return "", false
}

func (c *runCache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value = runCacheEntry{key: key, value: value}
		c.ll.MoveToFront(el)
		return
	}

	el := c.ll.PushFront(runCacheEntry{key: key, value: value})
	c.items[key] = el

	if c.ll.Len() > c.max {
		last := c.ll.Back()
		if last == nil {
			return
		}
		c.ll.Remove(last)
		delete(c.items, last.Value.(runCacheEntry).key)
	}
}

var dbRunCaches sync.Map // map[*sql.DB]*runCache

func getRunCache(db *sql.DB) *runCache {
	if existing, ok := dbRunCaches.Load(db); ok {
		return existing.(*runCache)
	}
	cache := newRunCache(runCacheSize)
	actual, _ := dbRunCaches.LoadOrStore(db, cache)
	return actual.(*runCache)
}
