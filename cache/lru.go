package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LRUCache is an in-memory cache, with a limited number of entries.
type LRUCache struct {
	lru *expirable.LRU[string, []byte]
}

// NewLRUCache returns a cache that keeps at most size entries, for ttl.
func NewLRUCache(size int, ttl time.Duration) *LRUCache {
	return &LRUCache{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (c *LRUCache) Get(key string) ([]byte, bool) {
	return c.lru.Get(key)
}

func (c *LRUCache) Add(key string, value []byte) {
	c.lru.Add(key, value)
}

func (c *LRUCache) Remove(key string) {
	c.lru.Remove(key)
}
