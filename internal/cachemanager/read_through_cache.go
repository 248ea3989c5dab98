package cachemanager

import (
	"context"
	"sync"
	"time"
)

// ReadThroughCache fills cache misses from fn. With shouldSkipCache set it
// always calls fn, which lets a feature flag turn caching off.
//
// Each key carries a version bumped by Invalidate. A load only stores its
// result if the version is unchanged, so a value read before a write cannot
// land in the cache after that write invalidated the key.
type ReadThroughCache[K comparable, V any, I any] struct {
	cache           CacheManager[K, V]
	fn              func(ctx context.Context, input I) (V, error)
	shouldSkipCache bool

	mu       sync.Mutex
	versions map[K]uint64
}

func NewReadThroughCache[K comparable, V any, I any](
	cache CacheManager[K, V],
	fn func(ctx context.Context, input I) (V, error),
	shouldSkipCache bool,
) *ReadThroughCache[K, V, I] {
	return &ReadThroughCache[K, V, I]{
		cache:           cache,
		fn:              fn,
		shouldSkipCache: shouldSkipCache,
		versions:        make(map[K]uint64),
	}
}

// Get returns the cached value for key or loads it from input.
func (r *ReadThroughCache[K, V, I]) Get(ctx context.Context, key K, input I, ttl time.Duration) (V, error) {
	if r.shouldSkipCache {
		return r.fn(ctx, input)
	}
	if value, ok := r.cache.Get(ctx, key); ok {
		return value, nil
	}
	return r.load(ctx, key, input, ttl)
}

// GetWithRefresh is Get that also pushes a hit's expiry out to ttl.
func (r *ReadThroughCache[K, V, I]) GetWithRefresh(ctx context.Context, key K, input I, ttl time.Duration) (V, error) {
	if r.shouldSkipCache {
		return r.fn(ctx, input)
	}
	if value, ok := r.cache.GetWithRefresh(ctx, key, ttl); ok {
		return value, nil
	}
	return r.load(ctx, key, input, ttl)
}

// Invalidate drops keys so the next Get reloads them, and voids loads that
// are already in flight for them.
func (r *ReadThroughCache[K, V, I]) Invalidate(ctx context.Context, keys ...K) error {
	r.mu.Lock()
	for _, k := range keys {
		r.versions[k]++
	}
	r.mu.Unlock()
	return r.cache.Delete(ctx, keys...)
}

func (r *ReadThroughCache[K, V, I]) load(ctx context.Context, key K, input I, ttl time.Duration) (V, error) {
	r.mu.Lock()
	version := r.versions[key]
	r.mu.Unlock()

	value, err := r.fn(ctx, input)
	if err != nil {
		return value, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.versions[key] == version {
		r.cache.Set(ctx, key, value, ttl)
	}
	return value, nil
}
