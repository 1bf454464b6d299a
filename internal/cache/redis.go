// Package cache holds the optional Redis cache used to remember which
// video index belongs to which derived index name, so repeat runs on the
// same video skip the index listing round-trip.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/AzaliaAlisheva/TgChannelRec/pkg/config"
	"github.com/AzaliaAlisheva/TgChannelRec/pkg/logging"
)

var (
	// ErrCacheDisabled is returned when cache operations are attempted but cache is disabled
	ErrCacheDisabled = fmt.Errorf("cache is disabled")
)

const indexTTL = 30 * 24 * time.Hour

// Cache wraps Redis client. A nil *Cache is valid and disabled.
type Cache struct {
	client *redis.Client
}

// New creates a new Redis cache client
func New(cfg *config.RedisConfig) (*Cache, error) {
	if !cfg.Enabled {
		logging.GetLogger().Info("Redis cache disabled")
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.GetLogger().Info("Redis connection established")

	return &Cache{client: client}, nil
}

func indexKey(name string) string {
	return "videoindex:" + name
}

// IndexID returns the cached index id for a derived index name.
// Returns "" without error on a miss or when the cache is disabled.
func (c *Cache) IndexID(ctx context.Context, name string) (string, error) {
	if c == nil || c.client == nil {
		return "", nil
	}
	id, err := c.client.Get(ctx, indexKey(name)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// StoreIndexID remembers the index id for a derived index name
func (c *Cache) StoreIndexID(ctx context.Context, name, id string) error {
	if c == nil || c.client == nil {
		return ErrCacheDisabled
	}
	return c.client.Set(ctx, indexKey(name), id, indexTTL).Err()
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Health checks Redis health
func (c *Cache) Health(ctx context.Context) error {
	if c == nil || c.client == nil {
		return ErrCacheDisabled
	}
	return c.client.Ping(ctx).Err()
}
