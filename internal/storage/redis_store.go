package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const redisKeyPrefix = "portal:"

// RedisStore keeps portal state in Redis so several console instances on one
// workstation share a session.
type RedisStore struct {
	redis  *redis.Client
	tracer trace.Tracer
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		redis:  client,
		tracer: otel.Tracer("clinicportal.internal.storage.redis"),
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, span := s.tracer.Start(ctx, "storage.redis.get")
	defer span.End()

	v, err := s.redis.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		span.RecordError(err)
		return "", false, fmt.Errorf("storage: redis get %s: %w", key, err)
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	ctx, span := s.tracer.Start(ctx, "storage.redis.set")
	defer span.End()

	if err := s.redis.Set(ctx, redisKeyPrefix+key, value, 0).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("storage: redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	ctx, span := s.tracer.Start(ctx, "storage.redis.delete")
	defer span.End()

	if err := s.redis.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("storage: redis delete %s: %w", key, err)
	}
	return nil
}
