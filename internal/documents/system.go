package documents

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/epistlelabs/epistle/pkg/pagination"
)

// System defines the public contract for enriched document operations.
type System interface {
	Handler(maxRequestSize int64) *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[EnrichedRecord], error)

	Find(ctx context.Context, id uuid.UUID) (*EnrichedRecord, error)
	Enrich(ctx context.Context, cmd IntakeCommand) (*EnrichedRecord, error)
	Snapshot(ctx context.Context, id uuid.UUID) (io.ReadCloser, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
