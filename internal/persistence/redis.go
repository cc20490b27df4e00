package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/rtc-token-service/internal/config"
)

// Redis wraps the go-redis client backing the latest-credential cache.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis when the cache is enabled. A disabled cache yields a Redis
// with a nil client so readiness checks can skip it.
func NewRedis(ctx context.Context, cfg config.RedisConfig, cache config.CacheConfig, logger *zap.Logger) *Redis {
	if !cache.Enabled {
		logger.Info("credential cache disabled; skipping redis connection")
		return &Redis{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr))
	}

	return &Redis{Client: client}
}

// Enabled reports whether a client was configured.
func (r *Redis) Enabled() bool {
	return r != nil && r.Client != nil
}

// Close closes the client.
func (r *Redis) Close() {
	if r.Enabled() {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity. A disabled cache is reported as healthy.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil {
		return errors.New("redis not initialised")
	}
	if r.Client == nil {
		return nil
	}
	return r.Client.Ping(ctx).Err()
}
