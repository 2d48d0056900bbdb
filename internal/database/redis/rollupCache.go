// Package cache keeps computed reports in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ds124wfegd/WB_L3/catering/internal/entity"

	"github.com/go-redis/redis/v8"
)

const rollupKey = "rollup:monthly"

// RollupCache stores the monthly transaction rollup report.
type RollupCache interface {
	Get(ctx context.Context) ([]entity.MonthlyRollup, bool, error)
	Set(ctx context.Context, rollups []entity.MonthlyRollup) error
	Invalidate(ctx context.Context) error
}

type redisRollupCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRollupCache(client *redis.Client, prefix string, ttl time.Duration) RollupCache {
	return &redisRollupCache{
		client: client,
		key:    prefix + ":" + rollupKey,
		ttl:    ttl,
	}
}

func (c *redisRollupCache) Get(ctx context.Context) ([]entity.MonthlyRollup, bool, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read rollup cache: %w", err)
	}

	rollups, err := decodeRollups(data)
	if err != nil {
		return nil, false, err
	}
	return rollups, true, nil
}

func (c *redisRollupCache) Set(ctx context.Context, rollups []entity.MonthlyRollup) error {
	data, err := encodeRollups(rollups)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write rollup cache: %w", err)
	}
	return nil
}

func (c *redisRollupCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate rollup cache: %w", err)
	}
	return nil
}

func encodeRollups(rollups []entity.MonthlyRollup) ([]byte, error) {
	if rollups == nil {
		rollups = []entity.MonthlyRollup{}
	}
	data, err := json.Marshal(rollups)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rollups: %w", err)
	}
	return data, nil
}

func decodeRollups(data []byte) ([]entity.MonthlyRollup, error) {
	var rollups []entity.MonthlyRollup
	if err := json.Unmarshal(data, &rollups); err != nil {
		return nil, fmt.Errorf("failed to decode cached rollups: %w", err)
	}
	return rollups, nil
}

// NopRollupCache never hits. Used when Redis is disabled.
type NopRollupCache struct{}

func (NopRollupCache) Get(context.Context) ([]entity.MonthlyRollup, bool, error) {
	return nil, false, nil
}

func (NopRollupCache) Set(context.Context, []entity.MonthlyRollup) error { return nil }

func (NopRollupCache) Invalidate(context.Context) error { return nil }
