package query

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisKeyPrefix namespaces persisted query records.
const RedisKeyPrefix = "portal:query:"

// RedisStore persists query records in Redis with a TTL.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a new store with Redis backend.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis: redisClient,
	}
}

// Load retrieves a record by key.
// Returns ErrRecordMiss if the key doesn't exist or the record is expired.
func (s *RedisStore) Load(ctx context.Context, key string) (*Record, error) {
	data, err := s.redis.Get(ctx, RedisKeyPrefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrRecordMiss
		}
		StoreErrors.WithLabelValues("redis", "load").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		StoreErrors.WithLabelValues("redis", "load").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	if rec.IsExpired() {
		_ = s.Delete(ctx, key)
		return nil, ErrRecordMiss
	}

	StoreHits.WithLabelValues("redis").Inc()
	return &rec, nil
}

// Save stores a record with TTL based on its ExpiresAt field.
func (s *RedisStore) Save(ctx context.Context, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("record cannot be nil")
	}

	ttl := rec.TTL()
	if ttl <= 0 {
		// Already expired, don't store
		return nil
	}

	data, err := json.Marshal(rec)
	if err != nil {
		StoreErrors.WithLabelValues("redis", "save").Inc()
		return fmt.Errorf("marshal record: %w", err)
	}

	if err := s.redis.Set(ctx, RedisKeyPrefix+rec.Key, data, ttl).Err(); err != nil {
		StoreErrors.WithLabelValues("redis", "save").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes a record.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, RedisKeyPrefix+key).Err(); err != nil {
		StoreErrors.WithLabelValues("redis", "delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
