package cache

import (
	"context"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appshared "github.com/erp/ledger/internal/application/shared"
	"github.com/erp/ledger/internal/infrastructure/config"
)

// Factory builds the Redis client and the idempotency store from configuration
type Factory struct {
	cfg                   config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
	keyPrefix             string
}

// FactoryOption configures a Factory
type FactoryOption func(*Factory)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) { f.logger = logger }
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to an
// in-memory store instead of failing. Defaults to true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) { f.allowInMemoryFallback = allow }
}

// WithKeyPrefix overrides DefaultIdempotencyPrefix
func WithKeyPrefix(prefix string) FactoryOption {
	return func(f *Factory) { f.keyPrefix = prefix }
}

// NewFactory creates a Factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{cfg: cfg, logger: zap.NewNop(), allowInMemoryFallback: true}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Build connects to Redis when a host is configured. The returned client is
// nil when Redis is disabled or unreachable with fallback allowed; closer
// releases whatever was opened.
func (f *Factory) Build(ctx context.Context) (appshared.IdempotencyStore, *redis.Client, io.Closer, error) {
	if f.cfg.Host == "" {
		f.logger.Info("Redis not configured, using in-memory idempotency store")
		mem := NewInMemoryIdempotencyStore(0)
		return mem, nil, mem, nil
	}

	client, err := NewRedisClient(ctx, f.cfg.Addr(), f.cfg.Password, f.cfg.DB)
	if err == nil {
		f.logger.Info("Using Redis idempotency store", zap.String("addr", f.cfg.Addr()))
		return NewRedisIdempotencyStore(client, f.keyPrefix), client, client, nil
	}
	if !f.allowInMemoryFallback {
		return nil, nil, nil, fmt.Errorf("redis required for idempotency but unavailable: %w", err)
	}
	f.logger.Warn("Redis unavailable, falling back to in-memory idempotency store; "+
		"retries routed to another instance will not be deduplicated",
		zap.Error(err))
	mem := NewInMemoryIdempotencyStore(0)
	return mem, nil, mem, nil
}
