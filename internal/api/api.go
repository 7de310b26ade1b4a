// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/epistlelabs/epistle/internal/config"
	"github.com/epistlelabs/epistle/internal/infrastructure"
	"github.com/epistlelabs/epistle/pkg/middleware"
	"github.com/epistlelabs/epistle/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.Logger(runtime.Logger))

	return m, nil
}
