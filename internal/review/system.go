package review

import (
	"context"

	"github.com/google/uuid"

	"github.com/epistlelabs/epistle/pkg/pagination"
)

// System defines the public contract for review queue operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Task], error)

	Find(ctx context.Context, id uuid.UUID) (*Task, error)
	FindByDocument(ctx context.Context, documentID uuid.UUID) (*Task, error)
	Create(ctx context.Context, cmd CreateCommand) (*Task, error)
	Resolve(ctx context.Context, id uuid.UUID, cmd ResolveCommand) (*Task, error)
}
