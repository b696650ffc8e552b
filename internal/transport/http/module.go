package http

import (
	"go.uber.org/fx"

	serviceordertransport "github.com/Additional-Code/servicedesk/internal/transport/http/serviceorder"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	serviceordertransport.Module,
)
