package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/identity-system/internal/api/metrics"
	"github.com/99minutos/identity-system/internal/core/domain"
)

// DefaultPermissionTTL bounds how long a resolved permission set is served.
const DefaultPermissionTTL = 5 * time.Minute

const versionKey = "perm:version"

// PermissionCache stores resolved role grants in Redis as JSON.
// Key format: perm:<version>:<id:roleID|name:roleName>
//
// Invalidate bumps the version, which orphans every entry at once; orphaned
// keys age out through their TTL.
type PermissionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPermissionCache creates a PermissionCache wrapping the given Redis client.
func NewPermissionCache(client *redis.Client, ttl time.Duration) *PermissionCache {
	if ttl <= 0 {
		ttl = DefaultPermissionTTL
	}
	return &PermissionCache{client: client, ttl: ttl}
}

func (c *PermissionCache) Get(ctx context.Context, ref string) (*domain.Grant, bool, error) {
	key, err := c.key(ctx, ref)
	if err != nil {
		metrics.PermissionCacheTotal.WithLabelValues("error").Inc()
		return nil, false, err
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.PermissionCacheTotal.WithLabelValues("miss").Inc()
		return nil, false, nil
	}
	if err != nil {
		metrics.PermissionCacheTotal.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("permission cache get: %w", err)
	}

	var grant domain.Grant
	if err := json.Unmarshal(raw, &grant); err != nil {
		metrics.PermissionCacheTotal.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("permission cache decode: %w", err)
	}
	if grant.Actions == nil {
		grant.Actions = []string{}
	}
	metrics.PermissionCacheTotal.WithLabelValues("hit").Inc()
	return &grant, true, nil
}

func (c *PermissionCache) Set(ctx context.Context, ref string, grant *domain.Grant) error {
	key, err := c.key(ctx, ref)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("permission cache encode: %w", err)
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

func (c *PermissionCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, versionKey).Err(); err != nil {
		return fmt.Errorf("permission cache invalidate: %w", err)
	}
	return nil
}

func (c *PermissionCache) key(ctx context.Context, ref string) (string, error) {
	version, err := c.client.Get(ctx, versionKey).Result()
	if errors.Is(err, redis.Nil) {
		version = "0"
	} else if err != nil {
		return "", fmt.Errorf("permission cache version: %w", err)
	}
	return fmt.Sprintf("perm:%s:%s", version, ref), nil
}
