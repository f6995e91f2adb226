// Package cache keeps the latest per-zone risk assessment in Redis so API
// consumers can read current risk without waiting for the next cycle.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/slopewatch/slopewatch/internal/config"
	"github.com/slopewatch/slopewatch/internal/monitoring/model"
)

// RiskCache is a write-through snapshot cache. A nil client makes every
// operation a no-op so the engine runs without Redis.
type RiskCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func New(rdb *redis.Client, ttl time.Duration) *RiskCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RiskCache{redis: rdb, ttl: ttl}
}

// NewClientFromConfig constructs a redis client from app config.
func NewClientFromConfig(c *config.RedisConfig) *redis.Client {
	if c == nil {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	})
}

func key(zoneID string) string { return "risk:zone:" + zoneID }

// Put stores the assessment for its zone.
func (c *RiskCache) Put(ctx context.Context, a *model.RiskAssessment) error {
	if c.redis == nil || a == nil {
		return nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal risk assessment: %w", err)
	}
	if err := c.redis.Set(ctx, key(a.ZoneID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache risk assessment for zone %s: %w", a.ZoneID, err)
	}
	return nil
}

// Get returns the cached assessment for a zone, or nil when absent/expired.
func (c *RiskCache) Get(ctx context.Context, zoneID string) (*model.RiskAssessment, error) {
	if c.redis == nil {
		return nil, nil
	}
	data, err := c.redis.Get(ctx, key(zoneID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached risk for zone %s: %w", zoneID, err)
	}
	var a model.RiskAssessment
	if err := json.Unmarshal([]byte(data), &a); err != nil {
		return nil, fmt.Errorf("decode cached risk for zone %s: %w", zoneID, err)
	}
	return &a, nil
}
