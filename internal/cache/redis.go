// Package cache holds the redis-backed import progress counters. The import
// core itself is stateless across chunks; these counters exist only so the UI
// driver can poll overall progress while it submits slices.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func progressKey(userID, kind string) string {
	return fmt.Sprintf("import:%s:%s", userID, kind)
}

func (c *Cache) AddImportProgress(ctx context.Context, userID string, count, skipped int) error {
	if _, err := c.client.IncrBy(ctx, progressKey(userID, "count"), int64(count)).Result(); err != nil {
		return fmt.Errorf("bump import count: %w", err)
	}
	if _, err := c.client.IncrBy(ctx, progressKey(userID, "skipped"), int64(skipped)).Result(); err != nil {
		return fmt.Errorf("bump import skipped: %w", err)
	}
	// Stale counters expire on their own if the driver never resets.
	c.client.Expire(ctx, progressKey(userID, "count"), time.Hour)
	c.client.Expire(ctx, progressKey(userID, "skipped"), time.Hour)
	return nil
}

func (c *Cache) ImportProgress(ctx context.Context, userID string) (int64, int64, error) {
	count, err := c.client.Get(ctx, progressKey(userID, "count")).Int64()
	if err != nil && err != redis.Nil {
		return 0, 0, fmt.Errorf("read import count: %w", err)
	}
	skipped, err := c.client.Get(ctx, progressKey(userID, "skipped")).Int64()
	if err != nil && err != redis.Nil {
		return 0, 0, fmt.Errorf("read import skipped: %w", err)
	}
	return count, skipped, nil
}

func (c *Cache) ResetImportProgress(ctx context.Context, userID string) error {
	return c.client.Del(ctx, progressKey(userID, "count"), progressKey(userID, "skipped")).Err()
}
