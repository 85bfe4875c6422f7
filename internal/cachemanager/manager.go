// Package cachemanager provides generic TTL caches used by the formatting
// pipeline. Parsed chapters and wrapped line sets are expensive to rebuild, so
// they are held in memory keyed by chapter and layout parameters.
package cachemanager

import (
	"context"
	"time"
)

// CacheManager is the interface shared by all cache backends.
type CacheManager[K ~string, V any] interface {
	Get(ctx context.Context, key K) (V, bool)
	GetWithRefresh(ctx context.Context, key K, ttl time.Duration) (V, bool)
	Set(ctx context.Context, key K, value V, ttl time.Duration)
	Delete(ctx context.Context, keys ...K) error
	Flush(ctx context.Context) error
	Len() int
}
