package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

// Redis wraps the go-redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis using the provided configuration.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

// GetCached returns the cached payload for key, or redis.Nil when absent.
func (r *Redis) GetCached(ctx context.Context, key string) ([]byte, error) {
	if r == nil || r.Client == nil {
		return nil, redis.Nil
	}
	return r.Client.Get(ctx, key).Bytes()
}

// SetCached stores payload under key with the given TTL. Failures are the
// caller's to ignore; the cache is best-effort.
func (r *Redis) SetCached(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Set(ctx, key, payload, ttl).Err()
}

// Invalidate removes a cached key.
func (r *Redis) Invalidate(ctx context.Context, key string) {
	if r == nil || r.Client == nil {
		return
	}
	_ = r.Client.Del(ctx, key).Err()
}

// IsCacheMiss reports whether err is the redis key-absent sentinel.
func IsCacheMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}
