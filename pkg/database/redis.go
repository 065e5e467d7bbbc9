package database

import (
	"batchgen/config"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const redisPingTimeout = 5 * time.Second

type RedisParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.AppConfig
	Logger    *zap.Logger
}

// NewRedisClient returns nil when neither a URL nor sentinels are configured.
func NewRedisClient(p RedisParams) (*redis.Client, error) {
	if !p.Config.RedisEnabled() {
		p.Logger.Debug("Redis not configured, live progress disabled")
		return nil, nil
	}

	client, err := redisFromConfig(p.Config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		p.Logger.Error("Failed to reach Redis", zap.Error(err))
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	p.Logger.Debug("Redis client created successfully")
	return client, nil
}

// redisFromConfig prefers the direct URL over a sentinel setup.
func redisFromConfig(c *config.AppConfig) (*redis.Client, error) {
	if c.RedisUrl != "" {
		options, err := redis.ParseURL(c.RedisUrl)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return redis.NewClient(options), nil
	}
	return redis.NewFailoverClient(&redis.FailoverOptions{
		MasterName:    c.RedisMasterName,
		SentinelAddrs: strings.Split(c.RedisSentinelHosts, ","),
	}), nil
}
