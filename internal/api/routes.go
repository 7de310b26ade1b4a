package api

import (
	"net/http"

	"github.com/epistlelabs/epistle/internal/config"
	"github.com/epistlelabs/epistle/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
) {
	routes.Register(
		mux,
		domain.Documents.Handler(cfg.API.MaxRequestSizeBytes()).Routes(),
		domain.Reviews.Handler().Routes(),
	)
}
