package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/actuallystonmai/viewing-service/internal/metrics"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const defaultTTL = 10 * time.Minute

// Cache keeps each user's circle memberships in Redis.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func buildKey(userID string) string {
	return fmt.Sprintf("circles:user:%s", userID)
}

// Get user's circle ids; found is false on a miss
func (c *Cache) GetCircles(ctx context.Context, userID string) ([]string, bool, error) {
	key := buildKey(userID)
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		metrics.MembershipCache.WithLabelValues("miss").Inc()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get circles from cache: %w", err)
	}

	var ids []string
	if err := json.Unmarshal([]byte(val), &ids); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal circles %s: %w", key, err)
	}
	if ids == nil {
		ids = []string{}
	}
	metrics.MembershipCache.WithLabelValues("hit").Inc()
	return ids, true, nil
}

// Store user's circle ids
func (c *Cache) SetCircles(ctx context.Context, userID string, circleIDs []string) error {
	if circleIDs == nil {
		circleIDs = []string{}
	}
	val, err := json.Marshal(circleIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal circles: %w", err)
	}
	if err := c.client.Set(ctx, buildKey(userID), val, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set circles in cache: %w", err)
	}
	return nil
}

// Clear user's entry: used when memberships change
func (c *Cache) ClearCircles(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, buildKey(userID)).Err(); err != nil {
		return fmt.Errorf("cache delete %s: %w", buildKey(userID), err)
	}
	return nil
}

// Ping connectivity
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
