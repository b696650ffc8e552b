package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/servicedesk/internal/config"
)

var errNotConnected = errors.New("rabbitmq: not connected")

// rabbitClient publishes to a topic exchange and consumes from a durable queue
// bound to it. The configured topic is used as routing key. In exclusive mode
// the queue is server-named, private to this connection and deleted with it.
type rabbitClient struct {
	cfg       config.RabbitMQ
	topic     string
	exclusive bool
	queue     string
	logger    *zap.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

func newRabbitClient(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger, exclusive bool) *rabbitClient {
	client := &rabbitClient{
		cfg:       cfg.Messaging.RabbitMQ,
		topic:     cfg.Messaging.Kafka.Topic,
		exclusive: exclusive,
		queue:     cfg.Messaging.RabbitMQ.Queue,
		logger:    logger,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return client.connect()
		},
		OnStop: func(context.Context) error {
			logger.Info("closing rabbitmq client")
			return client.close()
		},
	})

	return client
}

func (r *rabbitClient) connect() error {
	conn, err := amqp.Dial(r.cfg.URL)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open rabbitmq channel: %w", err)
	}
	if err := r.declare(ch); err != nil {
		_ = conn.Close()
		return err
	}

	r.mu.Lock()
	r.conn, r.channel = conn, ch
	r.mu.Unlock()

	r.logger.Info("rabbitmq connected",
		zap.String("exchange", r.cfg.Exchange),
		zap.String("queue", r.queueName()),
		zap.Bool("exclusive", r.exclusive),
	)
	return nil
}

func (r *rabbitClient) declare(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(r.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	var (
		q   amqp.Queue
		err error
	)
	if r.exclusive {
		q, err = ch.QueueDeclare("", false, true, true, false, nil)
	} else {
		q, err = ch.QueueDeclare(r.cfg.Queue, true, false, false, false, nil)
	}
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, r.topic, r.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	r.mu.Lock()
	r.queue = q.Name
	r.mu.Unlock()
	if r.cfg.Prefetch > 0 {
		if err := ch.Qos(r.cfg.Prefetch, 0, false); err != nil {
			return fmt.Errorf("set qos: %w", err)
		}
	}
	return nil
}

func (r *rabbitClient) current() (*amqp.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.channel == nil || r.channel.IsClosed() {
		return nil, errNotConnected
	}
	return r.channel, nil
}

func (r *rabbitClient) Publish(ctx context.Context, key []byte, value []byte) error {
	ch, err := r.current()
	if err != nil {
		return err
	}
	return ch.PublishWithContext(ctx, r.cfg.Exchange, r.topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    string(key),
		Timestamp:    time.Now().UTC(),
		Body:         value,
	})
}

func (r *rabbitClient) Consume(ctx context.Context, handler Handler) error {
	ch, err := r.current()
	if err != nil {
		return err
	}

	deliveries, err := ch.Consume(r.queueName(), "", false, r.exclusive, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume queue: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errNotConnected
			}

			if err := handler(ctx, fromDelivery(d)); err != nil {
				r.logger.Error("message handler failed", zap.Error(err), zap.Uint64("delivery_tag", d.DeliveryTag))

				if nackErr := d.Nack(false, !d.Redelivered); nackErr != nil {
					r.logger.Warn("nack failed", zap.Error(nackErr))
				}
				continue
			}

			if err := d.Ack(false); err != nil {
				r.logger.Warn("ack failed", zap.Error(err))
			}
		}
	}
}

func (r *rabbitClient) Topic() string { return r.topic }

func (r *rabbitClient) queueName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.queue
}

func (r *rabbitClient) close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	if r.channel != nil {
		_ = r.channel.Close()
	}
	err := r.conn.Close()
	r.conn, r.channel = nil, nil
	return err
}

func fromDelivery(d amqp.Delivery) Message {
	msg := Message{
		Topic: d.RoutingKey,
		Key:   []byte(d.MessageId),
		Value: append([]byte(nil), d.Body...),
		Time:  d.Timestamp,
	}
	if len(d.Headers) > 0 {
		msg.Headers = make(map[string]string, len(d.Headers))
		for k, v := range d.Headers {
			msg.Headers[k] = fmt.Sprint(v)
		}
	}
	return msg
}
