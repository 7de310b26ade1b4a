package api

import (
	"github.com/epistlelabs/epistle/internal/config"
	"github.com/epistlelabs/epistle/internal/infrastructure"
	"github.com/epistlelabs/epistle/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Storage:   infra.Storage,
			Transport: infra.Transport,
			Invoker:   infra.Invoker,
			Governor:  infra.Governor,
			Runtime:   infra.Runtime,
		},
		Pagination: cfg.API.Pagination,
	}
}
