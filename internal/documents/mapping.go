package documents

import (
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/epistlelabs/epistle/internal/pipeline"
	"github.com/epistlelabs/epistle/pkg/query"
	"github.com/epistlelabs/epistle/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "enriched_documents", "d").
	Project("id", "ID").
	Project("filename", "Filename").
	Project("fields", "Fields").
	Project("completeness", "Completeness").
	Project("phase_costs", "PhaseCosts").
	Project("total_cost", "TotalCost").
	Project("review_required", "ReviewRequired").
	Project("review_reasons", "ReviewReasons").
	Project("storage_key", "StorageKey").
	Project("started_at", "StartedAt").
	Project("finalized_at", "FinalizedAt").
	Project("created_at", "CreatedAt")

var defaultSort = query.SortField{
	Field:      "FinalizedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for enriched document
// queries. Nil fields are ignored.
type Filters struct {
	Filename       *string `json:"filename,omitempty"`
	ReviewRequired *bool   `json:"review_required,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereContains("Filename", f.Filename).
		WhereEquals("ReviewRequired", f.ReviewRequired)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if fn := values.Get("filename"); fn != "" {
		f.Filename = &fn
	}

	if rr := values.Get("review_required"); rr != "" {
		if v, err := strconv.ParseBool(rr); err == nil {
			f.ReviewRequired = &v
		}
	}

	return f
}

func scanRecord(s repository.Scanner) (EnrichedRecord, error) {
	var rec EnrichedRecord
	var fields, costs, reasons []byte

	err := s.Scan(
		&rec.ID,
		&rec.Filename,
		&fields,
		&rec.Completeness,
		&costs,
		&rec.TotalCost,
		&rec.ReviewRequired,
		&reasons,
		&rec.StorageKey,
		&rec.StartedAt,
		&rec.FinalizedAt,
		&rec.CreatedAt,
	)
	if err != nil {
		return rec, err
	}

	rec.Fields = make(map[string]pipeline.Field)
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &rec.Fields); err != nil {
			return rec, err
		}
	}

	rec.PhaseCosts = make(map[string]float64)
	if len(costs) > 0 {
		if err := json.Unmarshal(costs, &rec.PhaseCosts); err != nil {
			return rec, err
		}
	}

	rec.ReviewReasons = make([]string, 0)
	if len(reasons) > 0 {
		if err := json.Unmarshal(reasons, &rec.ReviewReasons); err != nil {
			return rec, err
		}
	}

	return rec, nil
}
