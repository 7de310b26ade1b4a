// Package documents implements the enriched document domain for Epistle.
// It accepts OCR-extracted correspondence, drives the enrichment pipeline,
// and persists the finalized records with their provenance and costs.
package documents

import (
	"time"

	"github.com/google/uuid"

	"github.com/epistlelabs/epistle/internal/pipeline"
)

// EnrichedRecord is the persisted form of a finalized enrichment. Fields
// and PhaseCosts round-trip through jsonb columns.
type EnrichedRecord struct {
	ID             uuid.UUID                 `json:"id"`
	Filename       string                    `json:"filename"`
	Fields         map[string]pipeline.Field `json:"fields"`
	Completeness   float64                   `json:"completeness_score"`
	PhaseCosts     map[string]float64        `json:"phase_costs"`
	TotalCost      float64                   `json:"total_cost"`
	ReviewRequired bool                      `json:"review_required"`
	ReviewReasons  []string                  `json:"review_reasons"`
	StorageKey     string                    `json:"storage_key,omitempty"`
	StartedAt      time.Time                 `json:"started_at"`
	FinalizedAt    time.Time                 `json:"finalized_at"`
	CreatedAt      time.Time                 `json:"created_at"`
}

// IntakeCommand carries an OCR-extracted document submitted for
// enrichment. ID is optional; a nil or zero value is replaced with a
// generated identifier.
type IntakeCommand struct {
	ID       *uuid.UUID `json:"id,omitempty"`
	Filename string     `json:"filename"`
	RawText  string     `json:"raw_extracted_text"`
}
