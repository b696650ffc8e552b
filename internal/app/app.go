package app

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/servicedesk/internal/cache"
	"github.com/Additional-Code/servicedesk/internal/config"
	"github.com/Additional-Code/servicedesk/internal/database"
	"github.com/Additional-Code/servicedesk/internal/logger"
	"github.com/Additional-Code/servicedesk/internal/messaging"
	"github.com/Additional-Code/servicedesk/internal/observability"
	repositoryserviceorder "github.com/Additional-Code/servicedesk/internal/repository/serviceorder"
	grpcserver "github.com/Additional-Code/servicedesk/internal/server/grpc"
	httpserver "github.com/Additional-Code/servicedesk/internal/server/http"
	serviceorder "github.com/Additional-Code/servicedesk/internal/service/serviceorder"
	transporthttp "github.com/Additional-Code/servicedesk/internal/transport/http"
	"github.com/Additional-Code/servicedesk/internal/worker"
	workerserviceorder "github.com/Additional-Code/servicedesk/internal/worker/serviceorder"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	repositoryserviceorder.Module,
	serviceorder.Module,
)

// HTTP wires the REST API and the gRPC health endpoint on top of the core
// modules. Replicas on the memory cache also follow the event stream to drop
// orders changed elsewhere.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	grpcserver.Module,
	transporthttp.Module,
	workerserviceorder.CacheSyncModule,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerserviceorder.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
