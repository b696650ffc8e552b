package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/servicedesk/internal/config"
)

// kafkaClient publishes service order events keyed by order, so every event
// of one order lands on the same partition and is read in write order. The
// group reader is opened by the first Consume: a publishing API replica must
// not join the group and hold partitions it never reads.
type kafkaClient struct {
	writer *kafka.Writer
	topic  string
	logger *zap.Logger

	openReader func() *kafka.Reader
	mu         sync.Mutex
	reader     *kafka.Reader
}

func (k *kafkaClient) consumer() *kafka.Reader {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.reader == nil {
		k.reader = k.openReader()
	}
	return k.reader
}

func (k *kafkaClient) close() error {
	var err error
	if k.writer != nil {
		err = k.writer.Close()
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.reader != nil {
		if cerr := k.reader.Close(); err == nil {
			err = cerr
		}
		k.reader = nil
	}
	return err
}

func (k *kafkaClient) Publish(ctx context.Context, key []byte, value []byte) error {
	if k.writer == nil {
		return errReadOnly
	}
	// The writer already targets the topic; kafka-go rejects it on both.
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:     key,
		Value:   value,
		Time:    time.Now().UTC(),
		Headers: []kafka.Header{{Key: "content-type", Value: []byte("application/json")}},
	})
}

// Consume returns on the first fetch error and leaves restarting to the
// caller. A message is committed once handled, even when the handler fails:
// a malformed event must not stall its partition.
func (k *kafkaClient) Consume(ctx context.Context, handler Handler) error {
	reader := k.consumer()
	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			return fmt.Errorf("kafka fetch: %w", err)
		}

		if err := handler(ctx, fromKafka(m)); err != nil {
			k.logger.Error("message handler failed",
				zap.Error(err),
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
			)
		}
		if err := reader.CommitMessages(ctx, m); err != nil {
			return fmt.Errorf("kafka commit: %w", err)
		}
	}
}

func (k *kafkaClient) Topic() string { return k.topic }

func newKafkaClient(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) *kafkaClient {
	client := &kafkaClient{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Messaging.Kafka.Brokers...),
			Topic:        cfg.Messaging.Kafka.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Logger:       kafkaLogger{logger: logger},
			ErrorLogger:  kafkaLogger{logger: logger, errors: true},
		},
		topic:  cfg.Messaging.Kafka.Topic,
		logger: logger,
		openReader: func() *kafka.Reader {
			return newKafkaReader(cfg, cfg.Messaging.ConsumerGroup, kafka.FirstOffset)
		},
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			logger.Info("closing kafka client")
			return client.close()
		},
	})
	return client
}

// newKafkaSubscription reads the topic under a consumer group of its own, so
// this process sees every event regardless of the shared worker group. Only
// events published after startup are delivered.
func newKafkaSubscription(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger, instance string) *kafkaClient {
	group := cfg.Messaging.ConsumerGroup + "-" + instance
	client := &kafkaClient{
		topic:  cfg.Messaging.Kafka.Topic,
		logger: logger,
		openReader: func() *kafka.Reader {
			return newKafkaReader(cfg, group, kafka.LastOffset)
		},
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			logger.Info("closing kafka subscription", zap.String("group", group))
			return client.close()
		},
	})
	return client
}

func newKafkaReader(cfg config.Config, groupID string, startOffset int64) *kafka.Reader {
	k := cfg.Messaging.Kafka
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        k.Brokers,
		GroupID:        groupID,
		Topic:          k.Topic,
		MinBytes:       k.MinBytes,
		MaxBytes:       k.MaxBytes,
		CommitInterval: k.CommitInterval,
		StartOffset:    startOffset,
		Dialer:         &kafka.Dialer{Timeout: k.ConnectTimeout, ClientID: k.ClientID},
	})
}

func fromKafka(m kafka.Message) Message {
	msg := Message{
		Topic:  m.Topic,
		Key:    append([]byte(nil), m.Key...),
		Value:  append([]byte(nil), m.Value...),
		Offset: m.Offset,
		Time:   m.Time,
	}
	if len(m.Headers) > 0 {
		msg.Headers = make(map[string]string, len(m.Headers))
		for _, h := range m.Headers {
			msg.Headers[h.Key] = string(h.Value)
		}
	}
	return msg
}

// kafkaLogger adapts zap to kafka-go's Logger. Client chatter goes to debug.
type kafkaLogger struct {
	logger *zap.Logger
	errors bool
}

func (k kafkaLogger) Printf(msg string, args ...interface{}) {
	if k.errors {
		k.logger.Sugar().Warnf(msg, args...)
		return
	}
	k.logger.Sugar().Debugf(msg, args...)
}
