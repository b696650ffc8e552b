package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	stdoutmetric "go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	stdouttrace "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/servicedesk/internal/config"
)

// Version is reported as service.version on every span and metric.
var Version = "1.0.0"

const shutdownTimeout = 10 * time.Second

// Manager owns the trace and meter providers of one process.
type Manager struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	metricsHandler http.Handler
	cfg            config.Observability
	logger         *zap.Logger
}

// Module exposes the observability manager to Fx.
var Module = fx.Provide(NewManager)

// NewManager builds the providers selected by configuration. An unknown
// exporter name disables that signal with a warning rather than failing.
func NewManager(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	res, err := sdkresource.New(context.Background(),
		sdkresource.WithFromEnv(),
		sdkresource.WithHost(),
		sdkresource.WithAttributes(resourceAttributes(cfg)...),
	)
	if err != nil {
		return nil, err
	}

	m := &Manager{cfg: cfg.Observability, logger: logger}

	if cfg.Observability.EnableTracing {
		exporter, err := traceExporter(cfg.Observability)
		if err != nil {
			return nil, err
		}
		if exporter != nil {
			m.tracerProvider = sdktrace.NewTracerProvider(
				sdktrace.WithBatcher(exporter),
				sdktrace.WithResource(res),
			)
		} else {
			logger.Warn("unsupported trace exporter; tracing disabled", zap.String("exporter", cfg.Observability.TraceExporter))
		}
	}

	if cfg.Observability.EnableMetrics {
		reader, handler, err := metricReader(cfg.Observability)
		if err != nil {
			return nil, err
		}
		if reader != nil {
			m.meterProvider = sdkmetric.NewMeterProvider(
				sdkmetric.WithReader(reader),
				sdkmetric.WithResource(res),
			)
			m.metricsHandler = handler
		} else {
			logger.Warn("unsupported metrics exporter; metrics disabled", zap.String("exporter", cfg.Observability.MetricsExporter))
		}
	}

	lc.Append(fx.Hook{OnStart: m.install, OnStop: m.shutdown})
	return m, nil
}

// resourceAttributes describes this deployment: who is reporting and which
// backends its service orders live on.
func resourceAttributes(cfg config.Config) []attribute.KeyValue {
	instance, err := os.Hostname()
	if err != nil || instance == "" {
		instance = "unknown"
	}
	messaging := "disabled"
	if cfg.Messaging.Enabled {
		messaging = cfg.Messaging.Driver
	}
	return []attribute.KeyValue{
		semconv.ServiceName(cfg.Observability.ServiceName),
		semconv.ServiceVersion(Version),
		semconv.ServiceInstanceID(instance),
		semconv.DeploymentEnvironment(cfg.Observability.Environment),
		attribute.String("servicedesk.database.driver", cfg.Database.Driver),
		attribute.String("servicedesk.cache.driver", cfg.Cache.Driver),
		attribute.String("servicedesk.messaging.driver", messaging),
		attribute.Int64("servicedesk.orders.number_floor", cfg.Orders.NumberFloor),
	}
}

// traceExporter returns nil, nil for an unknown exporter.
func traceExporter(cfg config.Observability) (sdktrace.SpanExporter, error) {
	switch cfg.TraceExporter {
	case "", "stdout":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "otlp":
		if cfg.TraceEndpoint == "" {
			return nil, fmt.Errorf("OBS_OTLP_ENDPOINT must be set for otlp exporter")
		}
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.TraceEndpoint)}
		if cfg.TraceInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return otlptracegrpc.New(ctx, opts...)
	default:
		return nil, nil
	}
}

// metricReader returns the reader for the configured exporter and, for
// prometheus, the scrape handler. Both are nil for an unknown exporter.
func metricReader(cfg config.Observability) (sdkmetric.Reader, http.Handler, error) {
	switch cfg.MetricsExporter {
	case "prometheus":
		exporter, err := promexporter.New(promexporter.WithRegisterer(prometheus.DefaultRegisterer))
		if err != nil {
			return nil, nil, err
		}
		return exporter, promhttp.Handler(), nil
	case "stdout":
		exporter, err := stdoutmetric.New(stdoutmetric.WithPrettyPrint(), stdoutmetric.WithWriter(os.Stdout))
		if err != nil {
			return nil, nil, err
		}
		return sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(30*time.Second)), nil, nil
	default:
		return nil, nil, nil
	}
}

func (m *Manager) install(context.Context) error {
	if m.tracerProvider != nil {
		otel.SetTracerProvider(m.tracerProvider)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
	}
	if m.meterProvider != nil {
		otel.SetMeterProvider(m.meterProvider)
	}
	return nil
}

func (m *Manager) shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var err error
	if m.tracerProvider != nil {
		err = errors.Join(err, m.tracerProvider.Shutdown(ctx))
	}
	if m.meterProvider != nil {
		err = errors.Join(err, m.meterProvider.Shutdown(ctx))
	}
	return err
}

// TracingEnabled reports whether spans are exported.
func (m *Manager) TracingEnabled() bool {
	return m.tracerProvider != nil
}

// MetricsEnabled reports whether instruments are exported.
func (m *Manager) MetricsEnabled() bool {
	return m.meterProvider != nil
}

// MetricsHandler is the prometheus scrape handler, nil for other exporters.
func (m *Manager) MetricsHandler() http.Handler {
	return m.metricsHandler
}

// PrometheusPath is where MetricsHandler is mounted.
func (m *Manager) PrometheusPath() string {
	return m.cfg.PrometheusPath
}

// Meter returns a meter from the configured provider, falling back to the
// global one (a no-op until a provider is installed). Safe on a nil Manager.
func (m *Manager) Meter(name string) metric.Meter {
	if m != nil && m.meterProvider != nil {
		return m.meterProvider.Meter(name)
	}
	return otel.GetMeterProvider().Meter(name)
}
