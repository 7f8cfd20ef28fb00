package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/storelink/backend/internal/domain/shared"
	"github.com/storelink/backend/internal/infrastructure/config"
)

// DeliveryStoreFactory creates webhook delivery stores based on configuration
type DeliveryStoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// DeliveryStoreFactoryOption is a functional option for configuring the factory
type DeliveryStoreFactoryOption func(*DeliveryStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) DeliveryStoreFactoryOption {
	return func(f *DeliveryStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory store
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) DeliveryStoreFactoryOption {
	return func(f *DeliveryStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewDeliveryStoreFactory creates a new factory
func NewDeliveryStoreFactory(cfg config.RedisConfig, opts ...DeliveryStoreFactoryOption) *DeliveryStoreFactory {
	f := &DeliveryStoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisStore creates a Redis-backed delivery store
func (f *DeliveryStoreFactory) CreateRedisStore() (shared.IdempotencyStore, error) {
	redisCfg := RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}

	store, err := NewRedisDeliveryStore(redisCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis delivery store: %w", err)
	}

	return store, nil
}

// CreateInMemoryStore creates an in-memory delivery store.
// In-memory stores do not share state across process instances; in a
// distributed deployment a duplicate delivery may slip past the cache and be
// absorbed by the idempotent order upsert instead.
func (f *DeliveryStoreFactory) CreateInMemoryStore() shared.IdempotencyStore {
	return NewInMemoryDeliveryStore()
}

// CreateStore creates a delivery store based on whether Redis is available.
// It tries Redis first and falls back to in-memory when allowed.
func (f *DeliveryStoreFactory) CreateStore() (shared.IdempotencyStore, error) {
	store, err := f.CreateRedisStore()
	if err == nil {
		f.logger.Info("using Redis webhook delivery store")
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for delivery dedup but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory webhook delivery store",
		zap.Error(err),
	)
	return f.CreateInMemoryStore(), nil
}
