package review

import (
	"encoding/json"
	"net/url"

	"github.com/google/uuid"

	"github.com/epistlelabs/epistle/pkg/query"
	"github.com/epistlelabs/epistle/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "review_tasks", "r").
	Project("id", "ID").
	Project("document_id", "DocumentID").
	Project("reasons", "Reasons").
	Project("missing_fields", "MissingFields").
	Project("low_confidence_fields", "LowConfidenceFields").
	Project("status", "Status").
	Project("created_at", "CreatedAt").
	Project("resolved_at", "ResolvedAt").
	Project("resolved_by", "ResolvedBy").
	Project("resolution", "Resolution")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for review task queries.
// Nil fields are ignored.
type Filters struct {
	Status     *string    `json:"status,omitempty"`
	DocumentID *uuid.UUID `json:"document_id,omitempty"`
	ResolvedBy *string    `json:"resolved_by,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereEquals("DocumentID", f.DocumentID).
		WhereContains("ResolvedBy", f.ResolvedBy)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if d := values.Get("document_id"); d != "" {
		if id, err := uuid.Parse(d); err == nil {
			f.DocumentID = &id
		}
	}

	if rb := values.Get("resolved_by"); rb != "" {
		f.ResolvedBy = &rb
	}

	return f
}

func scanTask(s repository.Scanner) (Task, error) {
	var t Task
	var reasons, missing, lowConfidence []byte

	err := s.Scan(
		&t.ID,
		&t.DocumentID,
		&reasons,
		&missing,
		&lowConfidence,
		&t.Status,
		&t.CreatedAt,
		&t.ResolvedAt,
		&t.ResolvedBy,
		&t.Resolution,
	)
	if err != nil {
		return t, err
	}

	if err := unmarshalList(reasons, &t.Reasons); err != nil {
		return t, err
	}
	if err := unmarshalList(missing, &t.MissingFields); err != nil {
		return t, err
	}
	if err := unmarshalList(lowConfidence, &t.LowConfidenceFields); err != nil {
		return t, err
	}

	return t, nil
}

func unmarshalList(data []byte, dest *[]string) error {
	if len(data) == 0 {
		*dest = []string{}
		return nil
	}
	return json.Unmarshal(data, dest)
}

func marshalList(values []string) ([]byte, error) {
	if values == nil {
		values = []string{}
	}
	return json.Marshal(values)
}
