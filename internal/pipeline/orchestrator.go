package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/epistlelabs/epistle/internal/invoke"
)

// Execute walks one document through every configured phase and returns
// its finalized enrichment record. Individual tool failures never abort
// the document; partial success with explicit provenance is the default
// outcome. Execute returns an error only for an empty document or a
// cancelled context.
func Execute(ctx context.Context, rt *Runtime, doc Document) (*EnrichedDocument, error) {
	if doc.RawText == "" {
		return nil, fmt.Errorf("document %s: %w", doc.ID, ErrEmptyDocument)
	}

	logger := rt.Logger.With("document_id", doc.ID)
	enriched := NewEnrichedDocument(doc)

	for _, phase := range rt.Phases {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("document %s aborted: %w", doc.ID, err)
		}

		if phase.Expensive && !rt.Governor.CanAfford(phase.Name) {
			skipPhase(enriched, phase, "daily budget threshold reached")
			logger.InfoContext(ctx, "phase skipped", "phase", phase.Name, "reason", "budget")
			continue
		}

		results := runPhase(ctx, rt, phase, doc, enriched)
		for i, spec := range phase.Tools {
			applyResult(rt, enriched, phase, spec, results[i])
		}

		logger.InfoContext(
			ctx, "phase complete",
			"phase", phase.Name,
			"tools", len(phase.Tools),
			"cost", enriched.PhaseCosts[phase.Name],
		)
	}

	finalize(enriched, rt)

	total := rt.Governor.FinishDocument(doc.ID)
	logger.InfoContext(
		ctx, "document finalized",
		"completeness", enriched.Completeness,
		"review_required", enriched.ReviewRequired,
		"cost", total,
	)

	return enriched, nil
}

// runPhase issues the phase's tool invocations concurrently. Tools in
// one phase target disjoint fields, so results merge in any order once
// all of them resolve.
func runPhase(
	ctx context.Context,
	rt *Runtime,
	phase PhaseSpec,
	doc Document,
	enriched *EnrichedDocument,
) []invoke.Result {
	params := buildParameters(doc, enriched)
	results := make([]invoke.Result, len(phase.Tools))

	g := new(errgroup.Group)
	g.SetLimit(workerCount(rt.WorkerLimit, len(phase.Tools)))

	for i, spec := range phase.Tools {
		g.Go(func() error {
			req := invoke.NewRequest(spec.Name, phase.Name, params, fallbackPayload(spec))
			results[i] = rt.Invoker.Invoke(ctx, req)
			return nil
		})
	}

	// Invokers resolve every call to a typed result, so Wait never
	// returns an error here.
	_ = g.Wait()
	return results
}

// buildParameters assembles the opaque invocation payload: document
// identity, raw text, and every actual-sourced field merged so far, so
// later phases can build on earlier output.
func buildParameters(doc Document, enriched *EnrichedDocument) json.RawMessage {
	merged := make(map[string]json.RawMessage)
	for name, f := range enriched.Fields {
		if f.Source == invoke.SourceActual {
			merged[name] = f.Value
		}
	}

	params, _ := json.Marshal(map[string]any{
		"document_id":        doc.ID,
		"filename":           doc.Filename,
		"raw_extracted_text": doc.RawText,
		"fields":             merged,
	})
	return params
}

// fallbackPayload returns the default payload matching the tool's output
// shape: an object with every declared field null.
func fallbackPayload(spec ToolSpec) json.RawMessage {
	fields := make(map[string]any, len(spec.Fields))
	for _, name := range spec.Fields {
		fields[name] = nil
	}
	payload, _ := json.Marshal(fields)
	return payload
}

func workerCount(limit, tools int) int {
	if limit < 1 {
		limit = 4
	}
	if tools >= 1 && tools < limit {
		return tools
	}
	return limit
}
