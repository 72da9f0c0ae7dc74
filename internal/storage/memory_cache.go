package storage

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// memoryCache keeps entries in process memory.
type memoryCache struct {
	cache      *ttlcache.Cache[string, []byte]
	defaultTTL time.Duration
}

func newMemoryCache(opts Options) *memoryCache {
	c := ttlcache.New[string, []byte](
		ttlcache.WithTTL[string, []byte](opts.DefaultTTL),
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	)
	go c.Start()
	return &memoryCache{cache: c, defaultTTL: opts.DefaultTTL}
}

// Close stops the expiry loop.
func (m *memoryCache) Close() error {
	m.cache.Stop()
	return nil
}

// Get returns a copy of the live entry for key.
func (m *memoryCache) Get(key string) ([]byte, bool, error) {
	item := m.cache.Get(key)
	if item == nil {
		return nil, false, nil
	}
	return append([]byte(nil), item.Value()...), true, nil
}

// Put stores a copy of value for ttl (the default TTL when ttl <= 0).
func (m *memoryCache) Put(key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	m.cache.Set(key, append([]byte(nil), value...), ttl)
	return nil
}
