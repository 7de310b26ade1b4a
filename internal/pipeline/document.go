// Package pipeline walks an OCR-extracted document through ordered
// enrichment phases, merging agent tool results into a single enriched
// record with explicit per-field provenance.
package pipeline

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/epistlelabs/epistle/internal/invoke"
)

// Document is the input unit handed to the pipeline by the external
// ingestion system: an OCR-extracted text with its source filename.
type Document struct {
	ID       uuid.UUID `json:"id"`
	Filename string    `json:"filename"`
	RawText  string    `json:"raw_extracted_text"`
}

// Field is one enriched value tagged with its provenance. Every field
// carries a source; there is no unknown-provenance state.
type Field struct {
	Value  json.RawMessage `json:"value,omitempty"`
	Source invoke.Source   `json:"source"`
	Tool   string          `json:"tool"`
	Reason string          `json:"reason,omitempty"`
}

// EnrichedDocument accumulates phase results for one document. It is
// exclusively owned by the orchestration processing that document and is
// immutable after Finalized is set.
type EnrichedDocument struct {
	DocumentID     uuid.UUID          `json:"document_id"`
	Filename       string             `json:"filename"`
	Fields         map[string]Field   `json:"fields"`
	Completeness   float64            `json:"completeness_score"`
	PhaseCosts     map[string]float64 `json:"phase_costs"`
	ReviewRequired bool               `json:"review_required"`
	ReviewReasons  []string           `json:"review_reasons,omitempty"`
	StartedAt      time.Time          `json:"started_at"`
	FinalizedAt    time.Time          `json:"finalized_at"`
	Finalized      bool               `json:"finalized"`

	// merged tracks request ids already applied, so a replayed result
	// never mutates an already-recorded field.
	merged map[uuid.UUID]struct{}
}

// NewEnrichedDocument creates the enrichment record for a document at
// the start of its first phase.
func NewEnrichedDocument(doc Document) *EnrichedDocument {
	return &EnrichedDocument{
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		Fields:     make(map[string]Field),
		PhaseCosts: make(map[string]float64),
		StartedAt:  time.Now(),
		merged:     make(map[uuid.UUID]struct{}),
	}
}

// ActualFields returns the names of fields with actual provenance.
func (e *EnrichedDocument) ActualFields() []string {
	out := make([]string, 0, len(e.Fields))
	for name, f := range e.Fields {
		if f.Source == invoke.SourceActual {
			out = append(out, name)
		}
	}
	return out
}

// FallbackFields returns the names of fields carrying fallback values.
func (e *EnrichedDocument) FallbackFields() []string {
	out := make([]string, 0)
	for name, f := range e.Fields {
		if f.Source == invoke.SourceFallback {
			out = append(out, name)
		}
	}
	return out
}
