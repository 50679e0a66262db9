package service

import (
	"context"
	"strconv"
	"time"

	"github.com/findit-id/cbt-backend/internal/config"
	"github.com/redis/go-redis/v9"
)

// Test end times stay cached for the length of a long exam day.
const endTimeCacheTTL = 12 * time.Hour

// RedisEndTimeCache caches test end times (unix seconds) in Redis so the
// remaining-time path, hit by every active countdown, skips Postgres.
type RedisEndTimeCache struct {
	rdb *redis.Client
}

// NewRedisEndTimeCache creates a new RedisEndTimeCache.
func NewRedisEndTimeCache(rdb *redis.Client) *RedisEndTimeCache {
	return &RedisEndTimeCache{rdb: rdb}
}

// GetEndTime returns the cached end time of a test. Any miss or decode
// failure is reported as an error; the caller falls back to storage.
func (c *RedisEndTimeCache) GetEndTime(ctx context.Context, testID int) (time.Time, error) {
	raw, err := c.rdb.Get(ctx, config.CacheKey.TestEndTimeKey(testID)).Result()
	if err != nil {
		return time.Time{}, err
	}
	unix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(unix, 0), nil
}

// SetEndTime stores the end time of a test.
func (c *RedisEndTimeCache) SetEndTime(ctx context.Context, testID int, end time.Time) error {
	return c.rdb.Set(ctx, config.CacheKey.TestEndTimeKey(testID), strconv.FormatInt(end.Unix(), 10), endTimeCacheTTL).Err()
}

// InvalidateEndTime drops the cached end time, forcing the next read through
// to storage. Called when an admin edits the test window.
func (c *RedisEndTimeCache) InvalidateEndTime(ctx context.Context, testID int) error {
	return c.rdb.Del(ctx, config.CacheKey.TestEndTimeKey(testID)).Err()
}
