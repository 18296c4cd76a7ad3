// Package cache is used to keep the container and folder listings for a short
// time, as listing a large container on Swift is slow.
package cache

import "time"

// DefaultTTL is the time a listing is kept in the cache.
const DefaultTTL = 30 * time.Second

// Cache is a key/value store where the values expire after a TTL.
type Cache interface {
	Get(key string) ([]byte, bool)
	Add(key string, value []byte)
	Remove(key string)
}
