package infrastructure

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"user-mvi/internal/config"
	redisclient "user-mvi/pkg/redis"
)

// NewRedisClient connects to redis when the rate limiter needs it and
// returns nil otherwise.
func NewRedisClient(ctx context.Context, cfg *config.Config, l *zap.Logger) (*redisclient.Client, error) {
	if !cfg.RateLimit.Enabled {
		l.Info("rate limiting disabled, skipping Redis")
		return nil, nil
	}

	rdb, err := redisclient.NewClient(ctx, RedisConfig(cfg), l)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}

// RedisConfig maps the application config onto the redis client config.
func RedisConfig(cfg *config.Config) redisclient.Config {
	return redisclient.Config{
		Addr:        cfg.Redis.Addr(),
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		MaxRetries:  cfg.Redis.MaxRetries,
		PoolSize:    cfg.Redis.PoolSize,
		MinIdleConn: cfg.Redis.MinIdleConn,
	}
}
