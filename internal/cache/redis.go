// Package cache provides the Redis-backed snapshot cache, for deployments
// where several server instances should share recomputed availability
// grids. The in-process cache in the availability package remains the
// default.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/courtbook/courtbook/internal/availability"
)

const putRetries = 3

type RedisSnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ availability.SnapshotCache = (*RedisSnapshotCache)(nil)

// NewRedis connects a snapshot cache to Redis. Entries expire after ttl;
// zero keeps them until invalidated.
func NewRedis(addr, password string, db int, ttl time.Duration) *RedisSnapshotCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisSnapshotCache{client: client, ttl: ttl}
}

// Ping verifies the connection at startup.
func (c *RedisSnapshotCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisSnapshotCache) Close() error {
	return c.client.Close()
}

type payload struct {
	Version int64               `json:"version"`
	Slots   []availability.Slot `json:"slots"`
}

func cacheKey(key availability.SnapshotKey) string {
	scope := "public"
	if key.IncludeCompleted {
		scope = "admin"
	}
	return fmt.Sprintf("availability:%s:%s:%s", key.CourtID, key.Date, scope)
}

func (c *RedisSnapshotCache) Get(ctx context.Context, key availability.SnapshotKey) (availability.Snapshot, bool, error) {
	val, err := c.client.Get(ctx, cacheKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return availability.Snapshot{}, false, nil
	}
	if err != nil {
		return availability.Snapshot{}, false, fmt.Errorf("redis get: %w", err)
	}

	var stored payload
	if err := json.Unmarshal([]byte(val), &stored); err != nil {
		return availability.Snapshot{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return availability.Snapshot{Slots: stored.Slots, Version: stored.Version}, true, nil
}

// Put stores a snapshot unless a newer version is already present. The
// check-and-set runs under WATCH so a slower, older fetch cannot clobber a
// newer grid.
func (c *RedisSnapshotCache) Put(ctx context.Context, key availability.SnapshotKey, snap availability.Snapshot) error {
	data, err := json.Marshal(payload{Version: snap.Version, Slots: snap.Slots})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	redisKey := cacheKey(key)

	txn := func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, redisKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("redis get: %w", err)
		}
		if err == nil {
			var existing payload
			if jsonErr := json.Unmarshal([]byte(val), &existing); jsonErr == nil && existing.Version > snap.Version {
				// A newer snapshot is already stored.
				return nil
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, redisKey, data, c.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < putRetries; i++ {
		err := c.client.Watch(ctx, txn, redisKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("redis put: %w", err)
		}
		return nil
	}
	return fmt.Errorf("redis put: %w", redis.TxFailedErr)
}

func (c *RedisSnapshotCache) Invalidate(ctx context.Context, key availability.SnapshotKey) error {
	if err := c.client.Del(ctx, cacheKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
