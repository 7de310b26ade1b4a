package pipeline

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/epistlelabs/epistle/internal/invoke"
)

// finalize computes the completeness score, decides review routing, and
// seals the record. Completeness is deterministic: the fraction of
// required fields whose value carries actual provenance.
func finalize(enriched *EnrichedDocument, rt *Runtime) {
	reasons := make([]string, 0)

	actual := 0
	for _, name := range rt.RequiredFields {
		if f, ok := enriched.Fields[name]; ok && f.Source == invoke.SourceActual {
			actual++
		}
	}

	if len(rt.RequiredFields) > 0 {
		enriched.Completeness = float64(actual) / float64(len(rt.RequiredFields))
	} else {
		enriched.Completeness = 1.0
	}

	for _, name := range rt.CriticalFields {
		f, ok := enriched.Fields[name]
		if !ok || f.Source == invoke.SourceFallback {
			reasons = append(reasons, "missing "+fieldLabel(name))
		}
	}

	if enriched.Completeness < rt.CompletenessThreshold {
		reasons = append(reasons, fmt.Sprintf("low completeness: %.2f", enriched.Completeness))
	}

	enriched.ReviewRequired = len(reasons) > 0
	enriched.ReviewReasons = reasons
	enriched.FinalizedAt = time.Now()
	enriched.Finalized = true
}

// LowConfidenceFields returns required fields that resolved to fallback,
// for inclusion in a review task.
func (e *EnrichedDocument) LowConfidenceFields(required []string) []string {
	out := make([]string, 0)
	for _, name := range required {
		f, ok := e.Fields[name]
		if !ok || f.Source == invoke.SourceFallback {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

func fieldLabel(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}
