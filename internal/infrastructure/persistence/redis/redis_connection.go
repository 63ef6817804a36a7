// Package redis provides the redis connection and the cache manager used for
// response caching and idempotency-key replay windows.
package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/riskpulse/internal/config"
	"github.com/turtacn/riskpulse/pkg/logger"
)

// NewClient opens and verifies a redis connection.
func NewClient(ctx context.Context, cfg config.RedisConfig, log logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	log.Info(ctx, "redis connected", logger.String("addr", cfg.Addr))
	return client, nil
}
