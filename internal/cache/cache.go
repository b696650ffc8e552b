package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/servicedesk/internal/config"
)

// Store is a byte-oriented cache backend.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ErrCacheMiss indicates the key is absent from the cache.
var ErrCacheMiss = errors.New("cache miss")

var errEmptyKey = errors.New("cache key is required")

// Module provides the cache store to the Fx graph.
var Module = fx.Provide(NewStore)

// NewStore returns the store selected by CACHE_DRIVER.
func NewStore(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Cache.Driver {
	case "", "noop":
		logger.Info("cache disabled")
		return noopStore{}, nil
	case "memory":
		logger.Info("caching service orders in process memory", zap.Duration("ttl", cfg.Cache.DefaultTTL))
		return NewMemoryStore(cfg.Cache.DefaultTTL), nil
	case "redis":
		return newRedisStore(lc, cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported cache driver %q", cfg.Cache.Driver)
	}
}

type noopStore struct{}

func (noopStore) Get(context.Context, string) ([]byte, error)              { return nil, ErrCacheMiss }
func (noopStore) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (noopStore) Delete(context.Context, string) error                     { return nil }
