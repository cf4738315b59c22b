// Package redis implements the cache port on Redis, the alternative shared
// L2 for deployments without NATS.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Strob0t/settingsadmin/internal/config"
	"github.com/Strob0t/settingsadmin/internal/port/cache"
)

// keyPrefix namespaces every key so the database can be shared.
const keyPrefix = "settingsadmin:"

var _ cache.Cache = (*Cache)(nil)

// Cache stores query results in Redis with per-key expiry.
type Cache struct {
	client goredis.UniversalClient
}

// New wraps an existing client.
func New(client goredis.UniversalClient) *Cache {
	return &Cache{client: client}
}

// Open connects using cfg and verifies the connection with PING.
func Open(ctx context.Context, cfg config.Redis) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return New(client), nil
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return val, true, nil
}

// Set stores value with ttl; zero means no expiry.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, keyPrefix+key, value, ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, keyPrefix+key).Err()
}

// Close releases the underlying client.
func (c *Cache) Close() error {
	return c.client.Close()
}
