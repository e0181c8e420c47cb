// Package cache stores rendered dashboard responses keyed by the exact
// request parameters.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Cache is a byte-value store with per-entry TTL. A ttl <= 0 stores the
// value without expiry on every backend.
type Cache interface {
	// Get returns the value and true on a hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend      string
	RedisAddr    string
	MemcacheAddr string
	MaxEntries   int
}

// New builds the backend named by opts.Backend: memory, redis, memcache or none.
func New(opts Options) (Cache, error) {
	switch strings.ToLower(opts.Backend) {
	case "", "memory":
		return NewMemory(opts.MaxEntries), nil
	case "redis":
		return NewRedis(opts.RedisAddr), nil
	case "memcache", "memcached":
		return NewMemcache(opts.MemcacheAddr), nil
	case "none", "off":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("cache: unknown backend %q", opts.Backend)
	}
}

// Key hashes parts into a fixed-length key safe for every backend.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return "cardash:" + hex.EncodeToString(h.Sum(nil))
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (Noop) Close() error { return nil }
