package serviceorder

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/servicedesk/internal/config"
	"github.com/Additional-Code/servicedesk/internal/messaging"
	svc "github.com/Additional-Code/servicedesk/internal/service/serviceorder"
	"github.com/Additional-Code/servicedesk/internal/worker"
)

// Evictor drops cached copies of an order.
type Evictor interface {
	Evict(ctx context.Context, id int64)
}

// CacheSyncModule keeps the in-process cache of an API replica coherent with
// writes made by other replicas.
var CacheSyncModule = fx.Module("serviceorder_cache_sync",
	fx.Provide(
		func(s *svc.Service) Evictor { return s },
		NewCacheSync,
	),
	fx.Invoke(func(*CacheSync) {}),
)

// CacheSync listens on a per-replica subscription and evicts the local copy of
// every order another process updated or deleted. It only runs with the
// memory cache driver: redis is shared and evicted by the writer itself.
type CacheSync struct {
	sub     messaging.Subscription
	evictor Evictor
	logger  *zap.Logger
	enabled bool
	group   *worker.Group
}

// NewCacheSync opens the subscription and registers the consume loop when the
// replica keeps orders in process memory and events are published. Otherwise
// nothing is connected.
func NewCacheSync(lc fx.Lifecycle, cfg config.Config, evictor Evictor, logger *zap.Logger) (*CacheSync, error) {
	enabled := cfg.Messaging.Enabled && cfg.Cache.Driver == "memory"
	if !enabled {
		logger.Debug("service order cache sync disabled", zap.String("cache_driver", cfg.Cache.Driver))
		return newCacheSync(nil, evictor, false, logger), nil
	}

	sub, err := messaging.NewSubscription(lc, cfg, logger)
	if err != nil {
		return nil, err
	}
	cs := newCacheSync(sub, evictor, true, logger)
	lc.Append(fx.Hook{OnStart: cs.Start, OnStop: cs.Stop})
	return cs, nil
}

func newCacheSync(sub messaging.Subscription, evictor Evictor, enabled bool, logger *zap.Logger) *CacheSync {
	return &CacheSync{sub: sub, evictor: evictor, logger: logger, enabled: enabled}
}

// Start launches the consume loop.
func (c *CacheSync) Start(context.Context) error {
	if !c.enabled {
		return nil
	}
	c.group = worker.Go(1, func(ctx context.Context, _ int) {
		worker.Consume(ctx, c.logger, c.sub, c.Handle)
	})
	c.logger.Info("service order cache sync started")
	return nil
}

// Stop cancels the loop and waits for it to exit.
func (c *CacheSync) Stop(ctx context.Context) error {
	return c.group.Stop(ctx)
}

// Handle evicts on updated and deleted events. Undecodable payloads are
// dropped: there is nothing to retry.
func (c *CacheSync) Handle(ctx context.Context, msg messaging.Message) error {
	event, err := decodeEvent(msg)
	if err != nil {
		c.logger.Warn("cache sync skipped undecodable event", zap.Error(err))
		return nil
	}

	switch event.Type {
	case svc.EventUpdated, svc.EventDeleted:
		c.evictor.Evict(ctx, event.ID)
		c.logger.Debug("evicted service order", zap.Int64("id", event.ID), zap.String("type", string(event.Type)))
	}
	return nil
}
