package service

import (
	"context"
	"encoding/json"

	"github.com/findit-id/cbt-backend/internal/config"
	"github.com/findit-id/cbt-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

// RedisScoreQueue pushes computed scores onto the Redis list drained by the
// score persister worker.
type RedisScoreQueue struct {
	rdb *redis.Client
}

// NewRedisScoreQueue creates a new RedisScoreQueue.
func NewRedisScoreQueue(rdb *redis.Client) *RedisScoreQueue {
	return &RedisScoreQueue{rdb: rdb}
}

// EnqueueScore pushes a score payload for background persistence.
func (q *RedisScoreQueue) EnqueueScore(ctx context.Context, s *model.Score) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return q.rdb.RPush(ctx, config.WorkerKey.PersistScoresQueue, payload).Err()
}

// RedisUnfairnessQueue pushes unfairness reports onto the Redis list drained
// by the unfairness persister worker.
type RedisUnfairnessQueue struct {
	rdb *redis.Client
}

// NewRedisUnfairnessQueue creates a new RedisUnfairnessQueue.
func NewRedisUnfairnessQueue(rdb *redis.Client) *RedisUnfairnessQueue {
	return &RedisUnfairnessQueue{rdb: rdb}
}

// Report pushes an unfairness report payload for background persistence.
func (q *RedisUnfairnessQueue) Report(ctx context.Context, r *model.UnfairnessReport) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return q.rdb.RPush(ctx, config.WorkerKey.PersistUnfairnessQueue, payload).Err()
}
