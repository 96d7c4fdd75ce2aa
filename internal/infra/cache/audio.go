// Package cache adapts memcached to the narration audio cache.
package cache

import (
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

const keyPrefix = "storynest:tts:"

type AudioCache struct {
	mc *memcache.Client
}

func NewAudioCache(mc *memcache.Client) *AudioCache {
	return &AudioCache{mc: mc}
}

func (c *AudioCache) Get(key string) (string, bool, error) {
	item, err := c.mc.Get(keyPrefix + key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(item.Value), true, nil
}

func (c *AudioCache) Set(key string, audioContent string, ttl time.Duration) error {
	return c.mc.Set(&memcache.Item{
		Key:        keyPrefix + key,
		Value:      []byte(audioContent),
		Expiration: int32(ttl / time.Second),
	})
}
