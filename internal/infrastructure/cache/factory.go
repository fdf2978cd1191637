package cache

import (
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/config"
)

// NewIdempotencyStore builds the idempotency store for the configured
// deployment: Redis when enabled, otherwise the in-memory store. A Redis
// connection failure falls back to in-memory with a warning rather than
// refusing to start.
func NewIdempotencyStore(cfg *config.Config, logger *zap.Logger) shared.IdempotencyStore {
	if !cfg.Redis.Enabled {
		return NewInMemoryIdempotencyStore()
	}

	store, err := NewRedisIdempotencyStore(RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		logger.Warn("redis unavailable, using in-memory idempotency store", zap.Error(err))
		return NewInMemoryIdempotencyStore()
	}
	return store
}
