// Package infrastructure provides core service initialization for application startup.
// It assembles the shared dependencies (logging, database, storage, transport,
// budget) that domain systems require.
package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/epistlelabs/epistle/internal/budget"
	"github.com/epistlelabs/epistle/internal/config"
	"github.com/epistlelabs/epistle/internal/invoke"
	"github.com/epistlelabs/epistle/internal/pipeline"
	"github.com/epistlelabs/epistle/internal/transport"
	"github.com/epistlelabs/epistle/pkg/database"
	"github.com/epistlelabs/epistle/pkg/lifecycle"
	"github.com/epistlelabs/epistle/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
// It provides a single point of initialization for lifecycle coordination,
// logging, database access, blob storage, the agent transport, and the
// budget governor.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
	Transport *transport.Client
	Invoker   invoke.System
	Governor  *budget.Governor
	Runtime   *pipeline.Runtime
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems, including the transport connection to the
// message router, but does not start them; call Start separately.
func New(ctx context.Context, cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	client, err := transport.Dial(ctx, cfg.Transport.URL, cfg.Transport.ClientID, logger)
	if err != nil {
		return nil, fmt.Errorf("transport dial failed: %w", err)
	}

	governor := budget.New(cfg.Budget.DailyCeiling, cfg.Budget.ThresholdFraction, logger)

	invoker := invoke.New(
		client,
		cfg.Faults.Registry(),
		cfg.Faults.TimeoutTable(),
		logger,
	)

	runtime := &pipeline.Runtime{
		Invoker:               invoker,
		Governor:              governor,
		Phases:                pipeline.ApplyCosts(pipeline.DefaultPhases(), cfg.Budget.ToolCosts),
		RequiredFields:        cfg.Pipeline.RequiredFields,
		CriticalFields:        cfg.Pipeline.CriticalFields,
		CompletenessThreshold: cfg.Pipeline.CompletenessThreshold,
		WorkerLimit:           cfg.Pipeline.WorkerLimit,
		Logger:                logger,
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Storage:   store,
		Transport: client,
		Invoker:   invoker,
		Governor:  governor,
		Runtime:   runtime,
	}, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
// Database, storage, and transport hooks are registered for startup and
// shutdown coordination.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	if err := i.Transport.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("transport start failed: %w", err)
	}
	return nil
}
