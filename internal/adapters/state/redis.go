package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/uxray-ai/uxray/internal/core"
)

const (
	redisCheckpointPrefix = "uxray:checkpoint:"
	redisResultPrefix     = "uxray:result:"
)

// RedisStore implements core.Store on Redis. Checkpoints expire with the
// configured TTL so abandoned runs clean themselves up; results are kept
// until overwritten.
type RedisStore struct {
	client        *redis.Client
	checkpointTTL time.Duration
}

// NewRedisStore connects to Redis using a redis:// URL.
func NewRedisStore(ctx context.Context, redisURL string, checkpointTTL time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &RedisStore{client: client, checkpointTTL: checkpointTTL}, nil
}

// SaveCheckpoint upserts a checkpoint with the store's TTL.
func (s *RedisStore) SaveCheckpoint(ctx context.Context, cp *core.PipelineCheckpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshaling checkpoint: %w", err)
	}
	if err := s.client.Set(ctx, redisCheckpointPrefix+cp.RequestKey, data, s.checkpointTTL).Err(); err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint retrieves a checkpoint, or nil when none exists.
func (s *RedisStore) LoadCheckpoint(ctx context.Context, requestKey string) (*core.PipelineCheckpoint, error) {
	data, err := s.client.Get(ctx, redisCheckpointPrefix+requestKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading checkpoint: %w", err)
	}

	var cp core.PipelineCheckpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, core.ErrState(core.CodeStoreCorrupted, "checkpoint value is not valid JSON").WithCause(err)
	}
	return &cp, nil
}

// DeleteCheckpoint removes a checkpoint key.
func (s *RedisStore) DeleteCheckpoint(ctx context.Context, requestKey string) error {
	if err := s.client.Del(ctx, redisCheckpointPrefix+requestKey).Err(); err != nil {
		return fmt.Errorf("deleting checkpoint: %w", err)
	}
	return nil
}

// SaveResult upserts a final result.
func (s *RedisStore) SaveResult(ctx context.Context, result *core.PipelineResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	if err := s.client.Set(ctx, redisResultPrefix+result.RequestKey, data, 0).Err(); err != nil {
		return fmt.Errorf("saving result: %w", err)
	}
	return nil
}

// LoadResult retrieves a final result, or nil when none exists.
func (s *RedisStore) LoadResult(ctx context.Context, requestKey string) (*core.PipelineResult, error) {
	data, err := s.client.Get(ctx, redisResultPrefix+requestKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading result: %w", err)
	}

	var result core.PipelineResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, core.ErrState(core.CodeStoreCorrupted, "result value is not valid JSON").WithCause(err)
	}
	return &result, nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
