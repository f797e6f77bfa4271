package db

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// clientName shows up in CLIENT LIST.
const clientName = "coach-service"

// NewRedisClient connects to redisURL and pings it. A positive poolSize
// overrides the go-redis default.
func NewRedisClient(ctx context.Context, redisURL string, poolSize int) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}
	if poolSize > 0 {
		opts.PoolSize = poolSize
	}
	if opts.ClientName == "" {
		opts.ClientName = clientName
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
