package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	appErrors "github.com/noah-isme/academy-scheduler/pkg/errors"
)

type redisStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
}

// CacheRepository stores JSON payloads in Redis. Entries are filed under a
// group so everything cached for one trainer can be dropped at once.
type CacheRepository struct {
	client redisStore
	prefix string
}

// NewCacheRepository constructs a cache repository.
func NewCacheRepository(client redisStore, prefix string) *CacheRepository {
	return &CacheRepository{client: client, prefix: prefix}
}

func (r *CacheRepository) groupKey(group string) string {
	return r.prefix + "group:" + group
}

// Get unmarshals the cached value into dest or returns ErrCacheMiss.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return appErrors.ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

// Set stores value under key for ttl and records the key in group.
func (r *CacheRepository) Set(ctx context.Context, group, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	if err := r.client.Set(ctx, r.prefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	if err := r.client.SAdd(ctx, r.groupKey(group), r.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis index %s: %w", key, err)
	}
	return nil
}

// DeleteGroup removes every entry recorded under group and returns how many were dropped.
func (r *CacheRepository) DeleteGroup(ctx context.Context, group string) (int64, error) {
	index := r.groupKey(group)
	keys, err := r.client.SMembers(ctx, index).Result()
	if err != nil {
		return 0, fmt.Errorf("redis members %s: %w", group, err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	deleted, err := r.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis delete %s: %w", group, err)
	}
	if err := r.client.Del(ctx, index).Err(); err != nil {
		return deleted, fmt.Errorf("redis delete index %s: %w", group, err)
	}
	return deleted, nil
}
