package query

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/arcanalyse/encounter-builder/internal/logger"
	"github.com/arcanalyse/encounter-builder/internal/storage"
)

// DefaultStaleTime is how long a successful result is served from cache.
const DefaultStaleTime = 30 * time.Second

// Query is a cached, keyed fetch of a single value.
type Query[T any] struct {
	Key       []string
	Fetch     func(ctx context.Context) (T, error)
	StaleTime time.Duration
	// Log receives cache failures. Nil discards them.
	Log logger.Logger
}

// CacheKey joins the key parts with "/".
func (q Query[T]) CacheKey() string {
	return strings.Join(q.Key, "/")
}

// Run returns a cached result younger than StaleTime or calls Fetch and
// caches its result. Fetch errors are returned as-is and never cached. A
// failing cache degrades to a plain fetch and is logged. A nil cache
// disables caching.
func (q Query[T]) Run(ctx context.Context, cache storage.Cache) (T, error) {
	key := q.CacheKey()
	log := logger.Ensure(q.Log)

	if cache != nil {
		raw, ok, err := cache.Get(key)
		switch {
		case err != nil:
			log.WarnObj("query cache read failed", "query_cache_error", cacheFailure(key, "get", err))
		case ok:
			var cached T
			err := json.Unmarshal(raw, &cached)
			if err == nil {
				return cached, nil
			}
			log.WarnObj("query cache entry undecodable", "query_cache_error", cacheFailure(key, "decode", err))
		}
	}

	v, err := q.Fetch(ctx)
	if err != nil {
		return v, err
	}

	if cache != nil {
		raw, err := json.Marshal(v)
		if err == nil {
			err = cache.Put(key, raw, q.staleTime())
		}
		if err != nil {
			log.WarnObj("query cache write failed", "query_cache_error", cacheFailure(key, "put", err))
		}
	}
	return v, nil
}

func (q Query[T]) staleTime() time.Duration {
	if q.StaleTime <= 0 {
		return DefaultStaleTime
	}
	return q.StaleTime
}

func cacheFailure(key, op string, err error) map[string]any {
	return map[string]any{
		"key":   key,
		"op":    op,
		"error": err.Error(),
	}
}
