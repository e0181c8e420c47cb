package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// Memcache stores responses in a memcached cluster.
type Memcache struct {
	client *memcache.Client
}

// NewMemcache creates a client for the given host:port servers.
func NewMemcache(servers ...string) *Memcache {
	return &Memcache{client: memcache.New(servers...)}
}

func (m *Memcache) Get(_ context.Context, key string) ([]byte, bool, error) {
	item, err := m.client.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return item.Value, true, nil
}

func (m *Memcache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	return m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: expirationSeconds(ttl),
	})
}

// expirationSeconds rounds ttl up to whole seconds; 0 means no expiry.
// memcached reads values above 30 days as a unix timestamp, so longer TTLs
// are capped there.
func expirationSeconds(ttl time.Duration) int32 {
	if ttl <= 0 {
		return 0
	}
	secs := (ttl + time.Second - 1) / time.Second
	if limit := time.Duration(30 * 24 * 60 * 60); secs > limit {
		secs = limit
	}
	return int32(secs)
}

// Close is a no-op; idle connections are reaped by the client.
func (m *Memcache) Close() error {
	return nil
}
