package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/epistlelabs/epistle/internal/invoke"
	"github.com/epistlelabs/epistle/pkg/formatting"
)

// reserved payload key agents may use to report the actual cost of an
// invocation; it never becomes a document field.
const costKey = "cost_usd"

// applyResult merges one tool result into the enrichment record and
// records its cost with the governor. Agent-reported costs win over the
// configured estimate.
func applyResult(
	rt *Runtime,
	enriched *EnrichedDocument,
	phase PhaseSpec,
	spec ToolSpec,
	res invoke.Result,
) {
	payload, cost := decodePayload(spec, res)

	if !enriched.mergeResult(spec, res, payload) {
		return
	}

	if res.Source == invoke.SourceActual {
		if cost <= 0 {
			cost = spec.CostEstimate
		}
		enriched.PhaseCosts[phase.Name] += cost
		rt.Governor.RecordActual(enriched.DocumentID, cost)
	}
}

// mergeResult applies the result's fields. Returns false when the
// result's request id was already merged or the record is finalized; a
// replayed or late result never mutates recorded fields.
func (e *EnrichedDocument) mergeResult(
	spec ToolSpec,
	res invoke.Result,
	payload map[string]json.RawMessage,
) bool {
	if e.Finalized {
		return false
	}
	if _, dup := e.merged[res.RequestID]; dup {
		return false
	}
	e.merged[res.RequestID] = struct{}{}

	for _, name := range spec.Fields {
		e.Fields[name] = buildField(name, spec, res, payload)
	}
	return true
}

func buildField(
	name string,
	spec ToolSpec,
	res invoke.Result,
	payload map[string]json.RawMessage,
) Field {
	if res.Source != invoke.SourceActual {
		reason := res.ErrorDetail
		if reason == "" {
			reason = fmt.Sprintf("%s failure", res.Category)
		}
		return Field{Source: invoke.SourceFallback, Tool: spec.Name, Reason: reason}
	}

	value, ok := payload[name]
	if !ok || isNull(value) {
		return Field{
			Source: invoke.SourceFallback,
			Tool:   spec.Name,
			Reason: fmt.Sprintf("field %s missing from %s payload", name, spec.Name),
		}
	}

	return Field{Value: value, Source: invoke.SourceActual, Tool: spec.Name}
}

// skipPhase records every field of a gated phase as fallback with the
// skip reason. Skips are provenance, not errors.
func skipPhase(enriched *EnrichedDocument, phase PhaseSpec, reason string) {
	for _, spec := range phase.Tools {
		for _, name := range spec.Fields {
			enriched.Fields[name] = Field{
				Source: invoke.SourceFallback,
				Tool:   spec.Name,
				Reason: reason,
			}
		}
	}
}

// decodePayload validates the opaque payload at the merge boundary and
// extracts any agent-reported cost. Unparseable payloads yield no
// fields, which downgrades them to fallback per field.
func decodePayload(spec ToolSpec, res invoke.Result) (map[string]json.RawMessage, float64) {
	if len(res.Payload) == 0 {
		return nil, 0
	}

	payload, err := formatting.Parse[map[string]json.RawMessage](string(res.Payload))
	if err != nil {
		return nil, 0
	}

	var cost float64
	if raw, ok := payload[costKey]; ok {
		_ = json.Unmarshal(raw, &cost)
		delete(payload, costKey)
	}

	return payload, cost
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
