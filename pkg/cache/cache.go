// Package cache provides byte-level caches for fetched module bodies and
// HTTP responses.
//
// Three backends implement [Cache]:
//   - [NullCache]: caches nothing; the default when caching is disabled
//   - [FileCache]: JSON entries with expiry under a directory, for the CLI
//   - [RedisCache]: a shared cache for several jet processes
//
// Keys are produced by a [Keyer] so that all backends agree on the layout.
// [Instrument] wraps any Cache and reports hits, misses and writes to the
// registered observability hooks.
//
// The package also carries the retry helpers used by HTTP clients:
// [Retryable] marks an error as transient and [RetryWithBackoff] retries
// only those.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values under string keys.
//
// Get reports a miss as (nil, false, nil); an error means the backend could
// not answer. A ttl of zero stores the value without expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
