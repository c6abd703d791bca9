// Package cache provides a Redis-backed read cache for assembled pass
// details. The registry service fills it on reads and invalidates it on
// every mutation, so a hit is always consistent with committed state.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"passgate/internal/registry/models"
	"passgate/pkg/platform/sentinel"
)

const keyPrefix = "passgate:pass:"

// Redis caches pass details with a TTL as a staleness backstop; explicit
// invalidation is the primary consistency mechanism.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func key(id models.PassID) string {
	return fmt.Sprintf("%s%d", keyPrefix, uint64(id))
}

// Get returns the cached pass or sentinel.ErrNotFound on miss.
func (c *Redis) Get(ctx context.Context, id models.PassID) (*models.Pass, error) {
	payload, err := c.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get cached pass: %w", err)
	}
	var pass models.Pass
	if err := json.Unmarshal(payload, &pass); err != nil {
		return nil, fmt.Errorf("decode cached pass: %w", err)
	}
	return &pass, nil
}

func (c *Redis) Put(ctx context.Context, pass *models.Pass) error {
	if pass == nil {
		return fmt.Errorf("pass is required")
	}
	payload, err := json.Marshal(pass)
	if err != nil {
		return fmt.Errorf("encode pass for cache: %w", err)
	}
	if err := c.client.Set(ctx, key(pass.ID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("put cached pass: %w", err)
	}
	return nil
}

func (c *Redis) Invalidate(ctx context.Context, id models.PassID) error {
	if err := c.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("invalidate cached pass: %w", err)
	}
	return nil
}
