// Package tilecache keeps recently served tile documents in process
// memory. Tile output is canonical, so a cached body is byte-identical
// to a regenerated one until the underlying data changes; expiry events
// from the diff ingester evict stale entries.
package tilecache

import (
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
)

type Cache struct {
	lru *lru.Cache[string, []byte]
}

// New returns a cache bounded to size entries, or nil when size <= 0.
// All methods are safe on a nil receiver, so callers need no guards.
func New(size int) *Cache {
	if size <= 0 {
		return nil
	}
	c, _ := lru.New[string, []byte](size)
	return &Cache{lru: c}
}

func Key(zoom, x, y int) string {
	return strconv.Itoa(zoom) + "/" + strconv.Itoa(x) + "/" + strconv.Itoa(y)
}

func (c *Cache) Get(key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	return c.lru.Get(key)
}

func (c *Cache) Add(key string, body []byte) {
	if c == nil {
		return
	}
	c.lru.Add(key, body)
}

// Invalidate drops the given keys and reports how many were present.
func (c *Cache) Invalidate(keys ...string) int {
	if c == nil {
		return 0
	}
	n := 0
	for _, k := range keys {
		if c.lru.Remove(k) {
			n++
		}
	}
	return n
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
