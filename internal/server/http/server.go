package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	echo "github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/servicedesk/internal/config"
	"github.com/Additional-Code/servicedesk/internal/database"
	"github.com/Additional-Code/servicedesk/internal/observability"
	"github.com/Additional-Code/servicedesk/internal/presentation/http/response"
	serviceordertransport "github.com/Additional-Code/servicedesk/internal/transport/http/serviceorder"
	"github.com/Additional-Code/servicedesk/internal/validation"
)

// APIVersion is reported by the root info endpoint.
const APIVersion = "2.1.3"

// Module exposes the HTTP server lifecycle to Fx.
var Module = fx.Module("http_server",
	fx.Provide(NewEcho),
	fx.Invoke(Run),
)

// Params collects the dependencies of NewEcho.
type Params struct {
	fx.In

	Config        config.Config
	Observability *observability.Manager `optional:"true"`
	Database      *database.Connections  `optional:"true"`
	Logger        *zap.Logger
}

// NewEcho configures the Echo router with middleware, the info and health
// endpoints and JSON error handling.
func NewEcho(p Params) *echo.Echo {
	cfg, obs, logger := p.Config, p.Observability, p.Logger

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	if obs != nil && obs.TracingEnabled() {
		e.Use(otelecho.Middleware(cfg.Observability.ServiceName))
	}
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			logger.Info("http request", fields...)
			return nil
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: corsOrigins(cfg.HTTP.CORSOrigins),
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
	}))
	e.Use(middleware.Gzip())

	if cfg.HTTP.StaticDir != "" {
		e.Use(middleware.StaticWithConfig(middleware.StaticConfig{
			Root:  cfg.HTTP.StaticDir,
			HTML5: true,
			Skipper: func(c echo.Context) bool {
				return strings.HasPrefix(c.Request().URL.Path, "/api/") || c.Request().URL.Path == "/health"
			},
		}))
	} else {
		e.GET("/", info)
	}

	e.GET("/health", health(p.Database))

	if obs != nil && obs.MetricsEnabled() && obs.MetricsHandler() != nil {
		e.GET(cfg.Observability.PrometheusPath, echo.WrapHandler(obs.MetricsHandler()))
	}

	return e
}

// InfoResponse describes the API at the root path.
type InfoResponse struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

func info(c echo.Context) error {
	return response.New(c).WithData(InfoResponse{
		Message: "API do Sistema de Ordem de Serviços",
		Version: APIVersion,
		Endpoints: map[string]string{
			"ordensServico": serviceordertransport.BasePath,
		},
	}).Build()
}

func health(conns *database.Connections) echo.HandlerFunc {
	return func(c echo.Context) error {
		if conns != nil {
			if err := conns.Ping(c.Request().Context()); err != nil {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			}
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}

// errorHandler renders router and unexpected errors in the API error shape.
func errorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			body := response.ErrorBody{Error: httpErrorMessage(he)}
			if he.Code >= http.StatusInternalServerError {
				logger.Error("http request failed", zap.String("path", c.Request().URL.Path), zap.Error(err))
			}
			if c.Request().Method == http.MethodHead {
				err = c.NoContent(he.Code)
			} else {
				err = c.JSON(he.Code, body)
			}
		} else {
			err = response.New(c).WithLogger(logger).WithError(err).Build()
		}
		if err != nil {
			logger.Error("write error response", zap.Error(err))
		}
	}
}

func httpErrorMessage(he *echo.HTTPError) string {
	switch he.Code {
	case http.StatusNotFound:
		return "Rota não encontrada"
	case http.StatusMethodNotAllowed:
		return "Método não permitido"
	}
	if msg, ok := he.Message.(string); ok && msg != "" {
		return msg
	}
	return http.StatusText(he.Code)
}

func corsOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// Run starts the HTTP server and ties it to the Fx lifecycle.
func Run(lc fx.Lifecycle, cfg config.Config, e *echo.Echo, logger *zap.Logger) {
	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)

	server := &http.Server{
		Addr:    addr,
		Handler: e,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting HTTP server", zap.String("addr", addr))
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping HTTP server")
			return server.Shutdown(ctx)
		},
	})
}
