// Package cache provides response caching with a Redis backend and an
// in-process fallback for single-node deployments.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned when a key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	Backend string `json:"backend"`
	Keys    int64  `json:"keys"`
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
}

// Cache stores serialized responses under string keys with a TTL.
type Cache interface {
	// Get returns the cached value or ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error

	// Clear drops every key this service owns.
	Clear(ctx context.Context) error

	Stats(ctx context.Context) (Stats, error)

	// Ping reports backend reachability.
	Ping(ctx context.Context) error

	Close() error
}
