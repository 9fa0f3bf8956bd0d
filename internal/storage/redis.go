package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisOptions configures the redis backend
type RedisOptions struct {
	Address  string
	Password string
	DB       int
}

// Redis keeps entries as plain redis strings without expiry
type Redis struct {
	client *redis.Client
}

// NewRedis connects and pings the server with exponential backoff
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	if opts.Address == "" {
		opts.Address = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})

	strategy := backoff.NewExponentialBackOff()
	strategy.MaxElapsedTime = 15 * time.Second
	ping := func() error {
		return client.Ping(ctx).Err()
	}
	err := backoff.RetryNotify(ping, backoff.WithContext(strategy, ctx), func(err error, wait time.Duration) {
		log.Warn().Err(err).Str("addr", opts.Address).Dur("retry_in", wait).Msg("Redis not reachable yet")
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Redis{client: client}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
