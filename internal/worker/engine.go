package worker

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/servicedesk/internal/config"
	"github.com/Additional-Code/servicedesk/internal/messaging"
)

// HandlerRegistration routes the messages of one topic to a handler.
type HandlerRegistration struct {
	Topic   string
	Handler messaging.Handler
}

// Params collects dependencies via Fx.
type Params struct {
	fx.In

	Client        messaging.Client
	Logger        *zap.Logger
	Config        config.Config
	Registrations []HandlerRegistration `group:"worker.handlers"`
}

// Engine runs the worker process: Workers.Concurrency consumers of the shared
// group, each message routed to the handler of its topic.
type Engine struct {
	client  messaging.Client
	logger  *zap.Logger
	enabled bool
	workers int
	routes  map[string]messaging.Handler
	group   *Group
}

// Module wires the engine into the Fx lifecycle.
var Module = fx.Options(
	fx.Provide(NewEngine),
	fx.Invoke(func(lc fx.Lifecycle, e *Engine) {
		lc.Append(fx.Hook{OnStart: e.Start, OnStop: e.Stop})
	}),
)

// NewEngine builds the routing table. Registrations without a topic or
// handler are ignored.
func NewEngine(p Params) *Engine {
	routes := make(map[string]messaging.Handler, len(p.Registrations))
	for _, r := range p.Registrations {
		if r.Topic != "" && r.Handler != nil {
			routes[r.Topic] = r.Handler
		}
	}
	workers := p.Config.Messaging.Workers.Concurrency
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		client:  p.Client,
		logger:  p.Logger,
		enabled: p.Config.Messaging.Enabled && p.Config.Messaging.Workers.Enabled,
		workers: workers,
		routes:  routes,
	}
}

// Start launches the consumers.
func (e *Engine) Start(context.Context) error {
	switch {
	case !e.enabled:
		e.logger.Info("worker disabled; set MESSAGING_ENABLED and WORKER_ENABLED to consume events")
		return nil
	case len(e.routes) == 0:
		e.logger.Info("worker has no handlers; nothing to consume")
		return nil
	}

	e.group = Go(e.workers, func(ctx context.Context, id int) {
		logger := e.logger.With(zap.Int("worker", id))
		Consume(ctx, logger, e.client, func(ctx context.Context, msg messaging.Message) error {
			return e.route(ctx, logger, msg)
		})
	})
	e.logger.Info("worker started", zap.Int("workers", e.workers), zap.String("topic", e.client.Topic()))
	return nil
}

// Stop cancels the consumers and waits for in-flight messages.
func (e *Engine) Stop(ctx context.Context) error {
	if err := e.group.Stop(ctx); err != nil {
		return err
	}
	if e.group != nil {
		e.logger.Info("worker stopped")
	}
	return nil
}

// route hands msg to the handler of its topic. Messages on other topics are
// acknowledged so they do not block the queue.
func (e *Engine) route(ctx context.Context, logger *zap.Logger, msg messaging.Message) error {
	handler, ok := e.routes[msg.Topic]
	if !ok {
		logger.Warn("no handler for topic", zap.String("topic", msg.Topic))
		return nil
	}
	logger.Debug("processing message", zap.String("topic", msg.Topic), zap.Int64("offset", msg.Offset))
	return handler(ctx, msg)
}
