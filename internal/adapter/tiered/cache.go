// Package tiered implements a two-level (L1 + L2) cache adapter so several
// admin UI instances can share fetched settings through NATS KV or Redis.
package tiered

import (
	"context"
	"errors"
	"time"

	"github.com/Strob0t/settingsadmin/internal/port/cache"
)

var _ cache.Cache = (*Cache)(nil)

// Cache combines an in-process L1 with a shared L2.
// Get checks L1 first, then L2, backfilling L1 on an L2 hit.
// Set and Delete operate on both levels.
type Cache struct {
	l1    cache.Cache
	l2    cache.Cache
	l1TTL time.Duration
}

// New creates a tiered cache. l1TTL caps how long L2 backfills live in L1;
// zero means the backfill uses no expiry of its own.
func New(l1, l2 cache.Cache, l1TTL time.Duration) *Cache {
	return &Cache{l1: l1, l2: l2, l1TTL: l1TTL}
}

// Get returns an L1 hit without touching L2. An L2 failure is returned
// alongside the L1 miss so the caller can decide to treat it as a miss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if val, found, err := c.l1.Get(ctx, key); err == nil && found {
		return val, true, nil
	}

	val, found, err := c.l2.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	_ = c.l1.Set(ctx, key, val, c.l1TTL)
	return val, true, nil
}

// Set writes L1 then L2. The L1 write stands even if L2 fails.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	l1TTL := ttl
	if c.l1TTL > 0 && (ttl == 0 || c.l1TTL < ttl) {
		l1TTL = c.l1TTL
	}
	return errors.Join(
		c.l1.Set(ctx, key, value, l1TTL),
		c.l2.Set(ctx, key, value, ttl),
	)
}

// Delete removes the key from both levels, attempting both even on error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return errors.Join(c.l1.Delete(ctx, key), c.l2.Delete(ctx, key))
}
