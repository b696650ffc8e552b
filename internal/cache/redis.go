package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/servicedesk/internal/config"
)

// redisStore namespaces every key with the service name so several
// deployments can share one redis database.
type redisStore struct {
	client     *goredis.Client
	prefix     string
	defaultTTL time.Duration
}

func newRedisStore(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) *redisStore {
	r := cfg.Cache.Redis
	store := &redisStore{
		client: goredis.NewClient(&goredis.Options{
			Addr:     r.Addr,
			Password: r.Password,
			DB:       r.DB,
		}),
		prefix:     keyPrefix(cfg.Observability.ServiceName),
		defaultTTL: cfg.Cache.DefaultTTL,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := store.client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("ping redis at %s: %w", r.Addr, err)
			}
			logger.Info("caching service orders in redis", zap.String("addr", r.Addr), zap.Int("db", r.DB))
			return nil
		},
		OnStop: func(context.Context) error {
			return store.client.Close()
		},
	})
	return store
}

func keyPrefix(service string) string {
	if service == "" {
		service = "servicedesk"
	}
	return service + ":"
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrCacheMiss
	}
	res, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrCacheMiss
	}
	return res, err
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errEmptyKey
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	return s.client.Set(ctx, s.prefix+key, value, ttl).Err()
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return s.client.Del(ctx, s.prefix+key).Err()
}
