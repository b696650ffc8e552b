package serviceorder

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/servicedesk/internal/config"
	"github.com/Additional-Code/servicedesk/internal/messaging"
	"github.com/Additional-Code/servicedesk/internal/observability"
	svc "github.com/Additional-Code/servicedesk/internal/service/serviceorder"
	"github.com/Additional-Code/servicedesk/internal/worker"
)

const instrumentationName = "github.com/Additional-Code/servicedesk/worker/serviceorder"

var workerTracer = otel.Tracer(instrumentationName)

// Module registers the service order event handler with the worker engine.
var Module = fx.Module("worker_serviceorder",
	fx.Provide(
		fx.Annotate(
			NewEventHandler,
			fx.ParamTags(``, ``, `optional:"true"`),
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewEventHandler consumes service order events from the shared worker group:
// each event is logged and counted by type, and the delay between the write
// and its processing is recorded.
func NewEventHandler(logger *zap.Logger, cfg config.Config, obs *observability.Manager) (worker.HandlerRegistration, error) {
	metrics, err := obs.Orders()
	if err != nil {
		return worker.HandlerRegistration{}, err
	}

	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.ordens_servico.event", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		event, err := decodeEvent(msg)
		if err != nil {
			logger.Error("failed to decode service order event", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}
		span.SetAttributes(
			attribute.String("event.type", string(event.Type)),
			attribute.Int64("ordem.id", event.ID),
		)

		metrics.Event(ctx, string(event.Type), event.At)

		logger.Info("service order event",
			zap.String("type", string(event.Type)),
			zap.Int64("id", event.ID),
			zap.Int64("numero_os", event.Number),
			zap.String("status", string(event.Status)),
			zap.Time("at", event.At),
		)
		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}, nil
}

func decodeEvent(msg messaging.Message) (svc.Event, error) {
	var event svc.Event
	err := json.Unmarshal(msg.Value, &event)
	return event, err
}
