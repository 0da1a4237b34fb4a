package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/schoolvax/portal/pkg/logger"
)

func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis", logger.Field{Key: "addr", Value: addr})

	return client, nil
}

// RedisStore is a fixed-window counter shared by every replica.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	rate   int
	window time.Duration
}

func NewRedisStore(client redis.Cmdable, prefix string, rate int, window time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, rate: rate, window: window}
}

func (s *RedisStore) Allow(ctx context.Context, key string) (bool, error) {
	k := s.prefix + key

	count, err := s.client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment %s: %w", k, err)
	}
	if count == 1 {
		if err := s.client.Expire(ctx, k, s.window).Err(); err != nil {
			return false, fmt.Errorf("failed to set expiry on %s: %w", k, err)
		}
		return count <= int64(s.rate), nil
	}

	allowed := count <= int64(s.rate)
	if !allowed {
		// A failed EXPIRE on the first hit leaves the counter without a TTL,
		// which would deny the key forever.
		if err := s.repairExpiry(ctx, k); err != nil {
			return false, err
		}
	}
	return allowed, nil
}

func (s *RedisStore) repairExpiry(ctx context.Context, k string) error {
	ttl, err := s.client.TTL(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("failed to read expiry of %s: %w", k, err)
	}
	if ttl != -1 {
		return nil
	}
	if err := s.client.Expire(ctx, k, s.window).Err(); err != nil {
		return fmt.Errorf("failed to set expiry on %s: %w", k, err)
	}
	return nil
}
