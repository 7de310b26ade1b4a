// Package review implements the human review queue. Documents whose
// enrichment misses critical fields or scores below the completeness
// threshold are routed here instead of failing the pipeline.
package review

import (
	"time"

	"github.com/google/uuid"
)

// Task statuses.
const (
	StatusPending  = "pending"
	StatusResolved = "resolved"
)

// Task is a single review queue entry for an enriched document.
type Task struct {
	ID                  uuid.UUID  `json:"id"`
	DocumentID          uuid.UUID  `json:"document_id"`
	Reasons             []string   `json:"reasons"`
	MissingFields       []string   `json:"missing_fields"`
	LowConfidenceFields []string   `json:"low_confidence_fields"`
	Status              string     `json:"status"`
	CreatedAt           time.Time  `json:"created_at"`
	ResolvedAt          *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy          *string    `json:"resolved_by,omitempty"`
	Resolution          *string    `json:"resolution,omitempty"`
}

// CreateCommand carries the data needed to enqueue a review task.
type CreateCommand struct {
	DocumentID          uuid.UUID `json:"document_id"`
	Reasons             []string  `json:"reasons"`
	MissingFields       []string  `json:"missing_fields"`
	LowConfidenceFields []string  `json:"low_confidence_fields"`
}

// ResolveCommand records the outcome of a completed review.
type ResolveCommand struct {
	ResolvedBy string `json:"resolved_by"`
	Resolution string `json:"resolution"`
}
