package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/epistlelabs/epistle/internal/pipeline"
	"github.com/epistlelabs/epistle/internal/review"
	"github.com/epistlelabs/epistle/pkg/pagination"
	"github.com/epistlelabs/epistle/pkg/query"
	"github.com/epistlelabs/epistle/pkg/repository"
	"github.com/epistlelabs/epistle/pkg/storage"
)

type repo struct {
	db         *sql.DB
	storage    storage.System
	reviews    review.System
	runtime    *pipeline.Runtime
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates an enriched document repository implementing the System interface.
func New(
	db *sql.DB,
	store storage.System,
	reviews review.System,
	runtime *pipeline.Runtime,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		storage:    store,
		reviews:    reviews,
		runtime:    runtime,
		logger:     logger.With("system", "documents"),
		pagination: pagination,
	}
}

func (r *repo) Handler(maxRequestSize int64) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxRequestSize)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[EnrichedRecord], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Filename")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count enriched documents: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	records, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("query enriched documents: %w", err)
	}

	result := pagination.NewPageResult(records, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*EnrichedRecord, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	rec, err := repository.QueryOne(ctx, r.db, q, args, scanRecord)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &rec, nil
}

func (r *repo) Enrich(ctx context.Context, cmd IntakeCommand) (*EnrichedRecord, error) {
	if strings.TrimSpace(cmd.RawText) == "" {
		return nil, ErrEmptyText
	}

	id := uuid.New()
	if cmd.ID != nil && *cmd.ID != uuid.Nil {
		id = *cmd.ID
	}

	doc := pipeline.Document{
		ID:       id,
		Filename: cmd.Filename,
		RawText:  cmd.RawText,
	}

	enriched, err := pipeline.Execute(ctx, r.runtime, doc)
	if err != nil {
		if errors.Is(err, pipeline.ErrEmptyDocument) {
			return nil, ErrEmptyText
		}
		return nil, fmt.Errorf("enrich document %s: %w", id, err)
	}

	key := buildStorageKey(id)
	if err := r.storage.UploadJSON(ctx, key, enriched); err != nil {
		r.logger.Warn("snapshot upload failed", "id", id, "key", key, "error", err)
		key = ""
	}

	rec, err := r.save(ctx, enriched, key)
	if err != nil {
		return nil, err
	}

	if enriched.ReviewRequired {
		r.enqueueReview(ctx, enriched)
	}

	r.logger.Info(
		"document enriched",
		"id", rec.ID,
		"completeness", rec.Completeness,
		"review_required", rec.ReviewRequired,
		"total_cost", rec.TotalCost,
	)
	return rec, nil
}

func (r *repo) Snapshot(ctx context.Context, id uuid.UUID) (io.ReadCloser, error) {
	rec, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.StorageKey == "" {
		return nil, ErrNotFound
	}

	reader, err := r.storage.Download(ctx, rec.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("download snapshot %s: %w", rec.StorageKey, err)
	}
	return reader, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	rec, err := r.Find(ctx, id)
	if err != nil {
		return err
	}

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM enriched_documents WHERE id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if rec.StorageKey != "" {
		if delErr := r.storage.Delete(ctx, rec.StorageKey); delErr != nil {
			r.logger.Warn(
				"snapshot delete failed after DB delete",
				"key", rec.StorageKey,
				"error", delErr,
			)
		}
	}

	r.logger.Info("enriched document deleted", "id", id)
	return nil
}

func (r *repo) save(
	ctx context.Context,
	enriched *pipeline.EnrichedDocument,
	storageKey string,
) (*EnrichedRecord, error) {
	fields, err := json.Marshal(enriched.Fields)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}

	costs, err := json.Marshal(enriched.PhaseCosts)
	if err != nil {
		return nil, fmt.Errorf("marshal phase costs: %w", err)
	}

	reasons := enriched.ReviewReasons
	if reasons == nil {
		reasons = []string{}
	}
	reasonsJSON, err := json.Marshal(reasons)
	if err != nil {
		return nil, fmt.Errorf("marshal review reasons: %w", err)
	}

	q := `
		INSERT INTO enriched_documents(id, filename, fields, completeness, phase_costs, total_cost, review_required, review_reasons, storage_key, started_at, finalized_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, filename, fields, completeness, phase_costs, total_cost, review_required, review_reasons, storage_key, started_at, finalized_at, created_at`

	insertArgs := []any{
		enriched.DocumentID,
		enriched.Filename,
		fields,
		enriched.Completeness,
		costs,
		totalCost(enriched),
		enriched.ReviewRequired,
		reasonsJSON,
		storageKey,
		enriched.StartedAt,
		enriched.FinalizedAt,
	}

	rec, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (EnrichedRecord, error) {
		return repository.QueryOne(ctx, tx, q, insertArgs, scanRecord)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	return &rec, nil
}

func (r *repo) enqueueReview(ctx context.Context, enriched *pipeline.EnrichedDocument) {
	cmd := review.CreateCommand{
		DocumentID:          enriched.DocumentID,
		Reasons:             enriched.ReviewReasons,
		MissingFields:       enriched.LowConfidenceFields(r.runtime.CriticalFields),
		LowConfidenceFields: enriched.LowConfidenceFields(r.runtime.RequiredFields),
	}

	if _, err := r.reviews.Create(ctx, cmd); err != nil {
		// The record itself is saved; review routing failure should not
		// discard the enrichment.
		r.logger.Error(
			"review task creation failed",
			"document_id", enriched.DocumentID,
			"error", err,
		)
	}
}

func totalCost(enriched *pipeline.EnrichedDocument) float64 {
	var total float64
	for _, cost := range enriched.PhaseCosts {
		total += cost
	}
	return total
}

func buildStorageKey(id uuid.UUID) string {
	return fmt.Sprintf("enrichments/%s.json", id)
}
