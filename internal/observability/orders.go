package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const ordersMeter = "github.com/Additional-Code/servicedesk/orders"

// OrderMetrics are the service order instruments shared by the API and the
// worker.
type OrderMetrics struct {
	created   metric.Int64Counter
	documents metric.Int64Counter
	conflicts metric.Int64Counter
	events    metric.Int64Counter
	eventLag  metric.Float64Histogram
}

// Orders builds the service order instruments. Safe on a nil Manager.
func (m *Manager) Orders() (*OrderMetrics, error) {
	meter := m.Meter(ordersMeter)
	o := &OrderMetrics{}

	var err error
	if o.created, err = meter.Int64Counter("service_orders_created_total",
		metric.WithDescription("Service orders created, by initial status")); err != nil {
		return nil, err
	}
	if o.documents, err = meter.Int64Counter("service_orders_documents_total",
		metric.WithDescription("PDF documents generated, by kind")); err != nil {
		return nil, err
	}
	if o.conflicts, err = meter.Int64Counter("service_orders_number_conflicts_total",
		metric.WithDescription("Order number collisions retried on create")); err != nil {
		return nil, err
	}
	if o.events, err = meter.Int64Counter("service_order_events_total",
		metric.WithDescription("Service order events processed, by type")); err != nil {
		return nil, err
	}
	if o.eventLag, err = meter.Float64Histogram("service_order_event_lag_seconds",
		metric.WithDescription("Delay between a service order write and its event being processed"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return o, nil
}

// Created counts a new order.
func (o *OrderMetrics) Created(ctx context.Context, status string) {
	o.created.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// Document counts a rendered PDF; kind is "order" or "report".
func (o *OrderMetrics) Document(ctx context.Context, kind string) {
	o.documents.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// NumberConflict counts a create retried because its number was taken.
func (o *OrderMetrics) NumberConflict(ctx context.Context) {
	o.conflicts.Add(ctx, 1)
}

// Event counts a processed event and, when the write time is known, how long
// it took to arrive.
func (o *OrderMetrics) Event(ctx context.Context, kind string, at time.Time) {
	attrs := metric.WithAttributes(attribute.String("type", kind))
	o.events.Add(ctx, 1, attrs)
	if !at.IsZero() {
		o.eventLag.Record(ctx, time.Since(at).Seconds(), attrs)
	}
}
