package cache

import (
	"context"
	"time"

	"github.com/matzehuels/jet/pkg/observability"
)

// Instrument wraps c so that hits, misses and writes are reported to
// observability.Cache() under keyType. Hooks are looked up on every call,
// so hooks registered after wrapping still receive events.
func Instrument(c Cache, keyType string) Cache {
	return &instrumented{Cache: c, keyType: keyType}
}

type instrumented struct {
	Cache
	keyType string
}

func (c *instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := c.Cache.Get(ctx, key)
	switch {
	case err != nil:
	case ok:
		observability.Cache().OnCacheHit(ctx, c.keyType)
	default:
		observability.Cache().OnCacheMiss(ctx, c.keyType)
	}
	return data, ok, err
}

func (c *instrumented) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := c.Cache.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, c.keyType, len(data))
	return nil
}
