package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/on-the-ground/reducks_go/shared/helper"
	"github.com/redis/go-redis/v9"
)

var (
	ErrEmptyConnectionURL = errors.New("empty redis connection URL")
	ErrRedisNotReady      = errors.New("redis did not become ready")
)

type RedisConfig struct {
	URL           string
	RetryAttempts int
	RetryInterval time.Duration
}

// ConnectRedis parses cfg.URL and pings the server until it answers or the attempts run out.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if cfg.URL == "" {
		return nil, ErrEmptyConnectionURL
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	err = helper.Retry(max(cfg.RetryAttempts, 1), cfg.RetryInterval, func() error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %w", ErrRedisNotReady, err)
	}
	return client, nil
}

// Redis stores JSON-encoded values under prefix+key.
type Redis struct {
	client *redis.Client
	prefix string
}

var _ Storage = (*Redis)(nil)

func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) Get(ctx context.Context, key string) (any, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}
	raw, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %q: %w", key, err)
	}
	value, err := decode(raw)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value any) error {
	if err := checkKey(key); err != nil {
		return err
	}
	raw, err := encode(value)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.prefix+key, raw, 0).Err(); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}
