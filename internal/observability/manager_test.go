package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/Additional-Code/servicedesk/internal/config"
)

func TestMeterOnNilManager(t *testing.T) {
	var m *Manager
	counter, err := m.Meter("test").Int64Counter("calls_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)
}

func TestDisabledManager(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	m, err := NewManager(lc, config.Config{Observability: config.Observability{ServiceName: "servicedesk"}}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, m.TracingEnabled())
	assert.False(t, m.MetricsEnabled())
	assert.Nil(t, m.MetricsHandler())
	assert.NotNil(t, m.Meter("servicedesk"))

	lc.RequireStart()
	lc.RequireStop()
}

func TestUnknownExportersDisableSignals(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	cfg := config.Config{Observability: config.Observability{
		ServiceName:     "servicedesk",
		EnableTracing:   true,
		TraceExporter:   "zipkin",
		EnableMetrics:   true,
		MetricsExporter: "statsd",
	}}
	m, err := NewManager(lc, cfg, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, m.TracingEnabled())
	assert.False(t, m.MetricsEnabled())
}

func TestOTLPRequiresEndpoint(t *testing.T) {
	cfg := config.Config{Observability: config.Observability{EnableTracing: true, TraceExporter: "otlp"}}
	_, err := NewManager(fxtest.NewLifecycle(t), cfg, zap.NewNop())
	assert.EqualError(t, err, "OBS_OTLP_ENDPOINT must be set for otlp exporter")
}

func TestResourceAttributesDescribeDeployment(t *testing.T) {
	cfg := config.Config{
		Database:      config.Database{Driver: "sqlite"},
		Cache:         config.Cache{Driver: "memory"},
		Messaging:     config.Messaging{Driver: "kafka"},
		Observability: config.Observability{ServiceName: "servicedesk", Environment: "homolog"},
		Orders:        config.Orders{NumberFloor: 1027},
	}

	attrs := attribute.NewSet(resourceAttributes(cfg)...)
	get := func(key string) string {
		v, ok := attrs.Value(attribute.Key(key))
		require.True(t, ok, key)
		return v.Emit()
	}

	assert.Equal(t, "servicedesk", get("service.name"))
	assert.Equal(t, Version, get("service.version"))
	assert.Equal(t, "homolog", get("deployment.environment"))
	assert.Equal(t, "sqlite", get("servicedesk.database.driver"))
	assert.Equal(t, "memory", get("servicedesk.cache.driver"))
	assert.Equal(t, "disabled", get("servicedesk.messaging.driver"))
	assert.Equal(t, "1027", get("servicedesk.orders.number_floor"))
	assert.NotEmpty(t, get("service.instance.id"))
}

func TestOrderMetricsOnNilManager(t *testing.T) {
	var m *Manager
	o, err := m.Orders()
	require.NoError(t, err)

	ctx := context.Background()
	o.Created(ctx, "aberto")
	o.Document(ctx, "report")
	o.NumberConflict(ctx)
	o.Event(ctx, "updated", time.Time{})
}

func TestOrderMetricsRecord(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	m := &Manager{meterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))}

	o, err := m.Orders()
	require.NoError(t, err)

	ctx := context.Background()
	o.Created(ctx, "aberto")
	o.Created(ctx, "aberto")
	o.Document(ctx, "order")
	o.Event(ctx, "deleted", time.Now().Add(-time.Second))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	sums := map[string]int64{}
	var lagCount uint64
	for _, metric := range rm.ScopeMetrics[0].Metrics {
		switch data := metric.Data.(type) {
		case metricdata.Sum[int64]:
			for _, dp := range data.DataPoints {
				sums[metric.Name] += dp.Value
			}
		case metricdata.Histogram[float64]:
			for _, dp := range data.DataPoints {
				lagCount += dp.Count
			}
		}
	}

	assert.Equal(t, int64(2), sums["service_orders_created_total"])
	assert.Equal(t, int64(1), sums["service_orders_documents_total"])
	assert.Equal(t, int64(1), sums["service_order_events_total"])
	assert.Equal(t, uint64(1), lagCount)
}
