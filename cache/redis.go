package cache

import (
	"time"

	"github.com/go-redis/redis/v7"
	"github.com/sirupsen/logrus"
)

// RedisCache is a cache shared by all the instances of the service.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisCache returns a cache backed by redis.
func NewRedisCache(ttl time.Duration, client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns the cached value for key. A redis error is reported as a cache
// miss: the caller will just ask Swift.
func (c *RedisCache) Get(key string) ([]byte, bool) {
	value, err := c.client.Get(key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		logrus.WithField("key", key).Warnf("Cannot read from redis: %s", err)
		return nil, false
	}
	return value, true
}

func (c *RedisCache) Add(key string, value []byte) {
	if err := c.client.Set(key, value, c.ttl).Err(); err != nil {
		logrus.WithField("key", key).Warnf("Cannot write to redis: %s", err)
	}
}

func (c *RedisCache) Remove(key string) {
	if err := c.client.Del(key).Err(); err != nil {
		logrus.WithField("key", key).Warnf("Cannot delete from redis: %s", err)
	}
}
