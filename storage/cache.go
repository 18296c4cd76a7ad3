package storage

import (
	"encoding/json"
	"strconv"
	"sync/atomic"
	"time"
)

const containersCacheKey = "containers"

// generations makes two generations created in the same nanosecond distinct.
var generations uint64

func containerCacheKey(name string) string {
	return "container:" + name
}

func generationCacheKey(container string) string {
	return "generation:" + container
}

func newGeneration() string {
	n := atomic.AddUint64(&generations, 1)
	return strconv.FormatInt(time.Now().UnixNano(), 36) + "." + strconv.FormatUint(n, 36)
}

// cacheKey puts a key in the namespace of the client, so that clients for
// different accounts can share a cache.
func (c *Client) cacheKey(key string) string {
	if c.namespace == "" {
		return key
	}
	return c.namespace + "|" + key
}

// blobsCacheKey is the key of a blob listing. It includes the generation of
// the container: a write in the container starts a new generation, and the
// listings of the previous ones are no longer read.
func (c *Client) blobsCacheKey(container, prefix, delimiter string) string {
	return "blobs:" + container + "|" + c.listingGeneration(container) + "|" + prefix + "|" + delimiter
}

func (c *Client) listingGeneration(container string) string {
	if c.cache == nil {
		return ""
	}
	key := c.cacheKey(generationCacheKey(container))
	if data, ok := c.cache.Get(key); ok && len(data) > 0 {
		return string(data)
	}
	gen := newGeneration()
	c.cache.Add(key, []byte(gen))
	return gen
}

// invalidateBlobs must be called after the blobs of a container have changed.
func (c *Client) invalidateBlobs(container string) {
	if c.cache == nil {
		return
	}
	c.cache.Add(c.cacheKey(generationCacheKey(container)), []byte(newGeneration()))
}

func (c *Client) getCached(key string, v interface{}) bool {
	if c.cache == nil {
		return false
	}
	data, ok := c.cache.Get(c.cacheKey(key))
	if !ok {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

func (c *Client) addCached(key string, v interface{}) {
	if c.cache == nil {
		return
	}
	if data, err := json.Marshal(v); err == nil {
		c.cache.Add(c.cacheKey(key), data)
	}
}

func (c *Client) evict(keys ...string) {
	if c.cache == nil {
		return
	}
	for _, key := range keys {
		c.cache.Remove(c.cacheKey(key))
	}
}
