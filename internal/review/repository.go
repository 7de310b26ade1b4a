package review

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/epistlelabs/epistle/pkg/pagination"
	"github.com/epistlelabs/epistle/pkg/query"
	"github.com/epistlelabs/epistle/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a review repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "review"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Task], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Status", "ResolvedBy")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count review tasks: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	tasks, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanTask)
	if err != nil {
		return nil, fmt.Errorf("query review tasks: %w", err)
	}

	result := pagination.NewPageResult(tasks, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Task, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	t, err := repository.QueryOne(ctx, r.db, q, args, scanTask)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &t, nil
}

func (r *repo) FindByDocument(ctx context.Context, documentID uuid.UUID) (*Task, error) {
	q, args := query.NewBuilder(projection).BuildSingle("DocumentID", documentID)

	t, err := repository.QueryOne(ctx, r.db, q, args, scanTask)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &t, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Task, error) {
	if cmd.DocumentID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing document id", ErrInvalidTask)
	}

	reasons, err := marshalList(cmd.Reasons)
	if err != nil {
		return nil, fmt.Errorf("marshal reasons: %w", err)
	}
	missing, err := marshalList(cmd.MissingFields)
	if err != nil {
		return nil, fmt.Errorf("marshal missing fields: %w", err)
	}
	lowConfidence, err := marshalList(cmd.LowConfidenceFields)
	if err != nil {
		return nil, fmt.Errorf("marshal low confidence fields: %w", err)
	}

	q := `
		INSERT INTO review_tasks(id, document_id, reasons, missing_fields, low_confidence_fields)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, document_id, reasons, missing_fields, low_confidence_fields, status, created_at, resolved_at, resolved_by, resolution`

	insertArgs := []any{uuid.New(), cmd.DocumentID, reasons, missing, lowConfidence}

	t, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Task, error) {
		return repository.QueryOne(ctx, tx, q, insertArgs, scanTask)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info(
		"review task created",
		"id", t.ID,
		"document_id", t.DocumentID,
		"reasons", t.Reasons,
	)
	return &t, nil
}

func (r *repo) Resolve(ctx context.Context, id uuid.UUID, cmd ResolveCommand) (*Task, error) {
	if cmd.ResolvedBy == "" {
		return nil, fmt.Errorf("%w: missing resolver", ErrInvalidTask)
	}

	existing, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status == StatusResolved {
		return nil, ErrAlreadyResolved
	}

	q := `
		UPDATE review_tasks
		SET status = $2, resolved_at = now(), resolved_by = $3, resolution = $4
		WHERE id = $1 AND status = $5
		RETURNING id, document_id, reasons, missing_fields, low_confidence_fields, status, created_at, resolved_at, resolved_by, resolution`

	updateArgs := []any{id, StatusResolved, cmd.ResolvedBy, cmd.Resolution, StatusPending}

	t, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Task, error) {
		return repository.QueryOne(ctx, tx, q, updateArgs, scanTask)
	})

	if err != nil {
		// A concurrent resolver wins the status guard; report the conflict.
		return nil, repository.MapError(err, ErrAlreadyResolved, ErrDuplicate)
	}

	r.logger.Info("review task resolved", "id", t.ID, "resolved_by", cmd.ResolvedBy)
	return &t, nil
}
