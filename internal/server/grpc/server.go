package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Additional-Code/servicedesk/internal/config"
	"github.com/Additional-Code/servicedesk/internal/database"
)

// ServiceName is the health-checked service reported alongside the overall status.
const ServiceName = "servicedesk.ServiceOrders"

const refreshEvery = 15 * time.Second

// Module exposes the gRPC server and lifecycle hooks to Fx.
var Module = fx.Module("grpc_server",
	fx.Provide(NewServer, NewHealth),
	fx.Invoke(Run),
)

// NewServer builds a gRPC server that logs every finished call.
func NewServer(logger *zap.Logger) *grpc.Server {
	return grpc.NewServer(
		grpc.ChainUnaryInterceptor(func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
			start := time.Now()
			resp, err := handler(ctx, req)
			logCall(logger, "unary", info.FullMethod, start, err)
			return resp, err
		}),
		grpc.ChainStreamInterceptor(func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
			start := time.Now()
			err := handler(srv, ss)
			logCall(logger, "stream", info.FullMethod, start, err)
			return err
		}),
	)
}

func logCall(logger *zap.Logger, kind, method string, start time.Time, err error) {
	fields := []zap.Field{
		zap.String("kind", kind),
		zap.String("method", method),
		zap.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		logger.Warn("grpc call failed", append(fields, zap.Error(err))...)
		return
	}
	logger.Debug("grpc call", fields...)
}

// Health publishes database reachability through grpc.health.v1, both for
// the whole server and for ServiceName.
type Health struct {
	server *health.Server
	conns  *database.Connections
	logger *zap.Logger
}

// NewHealth reports NOT_SERVING until the first Refresh.
func NewHealth(conns *database.Connections, logger *zap.Logger) *Health {
	h := &Health{server: health.NewServer(), conns: conns, logger: logger}
	h.publish(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Refresh pings the database and publishes the result.
func (h *Health) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if h.conns != nil {
		if err := h.conns.Ping(ctx); err != nil {
			h.logger.Warn("database unreachable", zap.Error(err))
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	h.publish(status)
	return status
}

func (h *Health) publish(status healthpb.HealthCheckResponse_ServingStatus) {
	for _, name := range []string{"", ServiceName} {
		h.server.SetServingStatus(name, status)
	}
}

func (h *Health) keepFresh(ctx context.Context) {
	ticker := time.NewTicker(refreshEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Refresh(ctx)
		}
	}
}

// Run serves gRPC on the configured address while the application runs.
// Nothing is started unless GRPC_ENABLED is set.
func Run(lc fx.Lifecycle, cfg config.Config, server *grpc.Server, hc *Health, logger *zap.Logger) {
	if !cfg.GRPC.Enabled {
		logger.Info("gRPC server disabled")
		return
	}
	healthpb.RegisterHealthServer(server, hc.server)

	addr := net.JoinHostPort(cfg.GRPC.Host, fmt.Sprint(cfg.GRPC.Port))
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(start context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen grpc: %w", err)
			}
			hc.Refresh(start)
			go hc.keepFresh(ctx)

			logger.Info("gRPC server listening", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := server.Serve(ln); err != nil {
					logger.Error("gRPC server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(stop context.Context) error {
			cancel()
			hc.server.Shutdown()

			done := make(chan struct{})
			go func() {
				server.GracefulStop()
				close(done)
			}()
			select {
			case <-done:
				return nil
			case <-stop.Done():
				server.Stop()
				return stop.Err()
			}
		},
	})
}
