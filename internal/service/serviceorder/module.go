package serviceorder

import (
	"go.uber.org/fx"

	repo "github.com/Additional-Code/servicedesk/internal/repository/serviceorder"
)

// Module provides the service order service to Fx.
var Module = fx.Options(
	fx.Provide(func(r *repo.Repository) Store { return r }),
	fx.Provide(NewService),
)
