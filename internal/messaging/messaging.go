package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/servicedesk/internal/config"
)

// Message is one event read from the bus, whatever the broker.
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
	Offset  int64
	Time    time.Time
}

// Handler processes one message. Consume stops at the first error.
type Handler func(context.Context, Message) error

// Client publishes service order events and consumes them as part of the
// shared worker group, so each event reaches one worker.
type Client interface {
	Publish(ctx context.Context, key []byte, value []byte) error
	Consume(ctx context.Context, handler Handler) error
	Topic() string
}

// Subscription receives every event published on the bus by any process.
// Each one gets its own copy of the stream.
type Subscription interface {
	Consume(ctx context.Context, handler Handler) error
}

var errReadOnly = errors.New("messaging: subscription cannot publish")

// Module wires the shared client. Subscriptions are opened by their consumers.
var Module = fx.Provide(NewClient)

// NewClient connects to the configured broker, or returns a client that
// drops events when messaging is off.
func NewClient(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Client, error) {
	switch driver(cfg) {
	case "noop":
		logger.Info("messaging disabled; events are dropped")
		return disabled{topic: cfg.Messaging.Kafka.Topic}, nil
	case "kafka":
		return newKafkaClient(lc, cfg, logger), nil
	case "rabbitmq":
		return newRabbitClient(lc, cfg, logger, false), nil
	}
	return nil, unsupported(cfg)
}

// NewSubscription opens a stream private to this process: a kafka reader
// under a group id nobody else uses, or an exclusive auto-delete rabbitmq
// queue bound to the exchange. It connects on start and closes on stop.
func NewSubscription(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Subscription, error) {
	switch driver(cfg) {
	case "noop":
		return disabled{topic: cfg.Messaging.Kafka.Topic}, nil
	case "kafka":
		return newKafkaSubscription(lc, cfg, logger, uuid.NewString()), nil
	case "rabbitmq":
		return newRabbitClient(lc, cfg, logger, true), nil
	}
	return nil, unsupported(cfg)
}

func driver(cfg config.Config) string {
	if !cfg.Messaging.Enabled {
		return "noop"
	}
	return cfg.Messaging.Driver
}

func unsupported(cfg config.Config) error {
	return fmt.Errorf("unsupported messaging driver %q", cfg.Messaging.Driver)
}

// disabled drops published events and blocks consumers until cancelled.
type disabled struct {
	topic string
}

func (d disabled) Publish(context.Context, []byte, []byte) error { return nil }
func (d disabled) Topic() string                                 { return d.topic }

func (d disabled) Consume(ctx context.Context, _ Handler) error {
	<-ctx.Done()
	return ctx.Err()
}
