package storage

import (
	"fmt"
	"strings"
	"time"
)

// Package storage provides the query cache backends.

// Cache stores serialized query results with a per-entry lifetime.
type Cache interface {
	Close() error
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte, ttl time.Duration) error
}

// Options controls retention characteristics for concrete cache implementations.
type Options struct {
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
}

const (
	TypeMemory = "memory"
	TypeBBolt  = "bbolt"

	defaultTTL             = 30 * time.Second
	defaultCleanupInterval = 10 * time.Minute
)

// NewCache creates the configured cache backend.
func NewCache(typ, path string, opts Options) (Cache, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopCache{}, nil
	case TypeMemory:
		return newMemoryCache(opts), nil
	case TypeBBolt:
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt cache requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported cache type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = defaultTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopCache struct{}

func (noopCache) Close() error                             { return nil }
func (noopCache) Get(string) ([]byte, bool, error)         { return nil, false, nil }
func (noopCache) Put(string, []byte, time.Duration) error { return nil }
