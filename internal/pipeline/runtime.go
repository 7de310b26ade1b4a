package pipeline

import (
	"log/slog"

	"github.com/epistlelabs/epistle/internal/budget"
	"github.com/epistlelabs/epistle/internal/invoke"
)

// Runtime bundles the dependencies an orchestration requires. It is
// constructed once by composition code and shared across concurrent
// document orchestrations; only the Governor holds mutable state.
type Runtime struct {
	Invoker  invoke.System
	Governor *budget.Governor
	Phases   []PhaseSpec

	// RequiredFields drive completeness scoring; CriticalFields force
	// review whenever they resolve to fallback.
	RequiredFields []string
	CriticalFields []string

	// CompletenessThreshold is the pass score below which a document is
	// routed to review.
	CompletenessThreshold float64

	// WorkerLimit bounds concurrent tool invocations within one phase.
	WorkerLimit int

	Logger *slog.Logger
}
