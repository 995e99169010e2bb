package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/customer-ledger/internal/config"
)

// Redis keeps removal tombstones for the undo window.
type Redis struct {
	Client *redis.Client
}

// NewRedis builds the tombstone client. Socket timeouts follow the storage
// timeout. An unreachable server is logged, not fatal: removals still succeed
// and readiness reports the outage.
func NewRedis(ctx context.Context, cfg config.RedisConfig, storage config.StorageConfig, logger *zap.Logger) *Redis {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if timeout := storage.Timeout(); timeout > 0 {
		opts.DialTimeout = timeout
		opts.ReadTimeout = timeout
		opts.WriteTimeout = timeout
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := withStorageTimeout(ctx, storage)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("tombstone store unreachable; undo will be unavailable until it recovers",
			zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	}

	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping is used by the readiness probe.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}
