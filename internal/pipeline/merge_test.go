package pipeline

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/epistlelabs/epistle/internal/budget"
	"github.com/epistlelabs/epistle/internal/invoke"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func metadataResult(id uuid.UUID, sender string) invoke.Result {
	payload, _ := json.Marshal(map[string]any{
		"sender_identity": sender,
		"cost_usd":        0.05,
	})
	return invoke.Result{
		RequestID: id,
		Tool:      ToolExtractMetadata,
		Phase:     PhaseExtraction,
		Outcome:   invoke.OutcomeSuccess,
		Source:    invoke.SourceActual,
		Payload:   payload,
		Attempts:  1,
	}
}

func TestApplyResultDropsReplayedRequestID(t *testing.T) {
	rt := &Runtime{
		Governor: budget.New(100, 0.25, discardLogger()),
		Logger:   discardLogger(),
	}
	doc := Document{ID: uuid.New(), Filename: "letter.txt", RawText: "text"}
	enriched := NewEnrichedDocument(doc)

	spec := ToolSpec{Name: ToolExtractMetadata, Fields: []string{"sender_identity"}}
	phase := PhaseSpec{Name: PhaseExtraction, Tools: []ToolSpec{spec}}

	requestID := uuid.New()
	applyResult(rt, enriched, phase, spec, metadataResult(requestID, "John Hale"))
	applyResult(rt, enriched, phase, spec, metadataResult(requestID, "Someone Else"))

	var sender string
	if err := json.Unmarshal(enriched.Fields["sender_identity"].Value, &sender); err != nil {
		t.Fatalf("unmarshal sender: %v", err)
	}
	if sender != "John Hale" {
		t.Errorf("sender_identity = %q, want first write preserved", sender)
	}

	// The replay records no additional cost either.
	if got := enriched.PhaseCosts[PhaseExtraction]; got != 0.05 {
		t.Errorf("phase cost = %f, want 0.05", got)
	}
}

func TestMergeResultDistinctRequestsBothApply(t *testing.T) {
	rt := &Runtime{
		Governor: budget.New(100, 0.25, discardLogger()),
		Logger:   discardLogger(),
	}
	enriched := NewEnrichedDocument(Document{ID: uuid.New(), RawText: "text"})

	spec := ToolSpec{Name: ToolExtractMetadata, Fields: []string{"sender_identity"}}
	phase := PhaseSpec{Name: PhaseExtraction, Tools: []ToolSpec{spec}}

	applyResult(rt, enriched, phase, spec, metadataResult(uuid.New(), "John Hale"))
	applyResult(rt, enriched, phase, spec, metadataResult(uuid.New(), "Margaret Hale"))

	var sender string
	if err := json.Unmarshal(enriched.Fields["sender_identity"].Value, &sender); err != nil {
		t.Fatalf("unmarshal sender: %v", err)
	}
	if sender != "Margaret Hale" {
		t.Errorf("sender_identity = %q, want latest distinct write", sender)
	}
}

func TestMergeResultRejectedAfterFinalize(t *testing.T) {
	enriched := NewEnrichedDocument(Document{ID: uuid.New(), RawText: "text"})
	enriched.Finalized = true

	spec := ToolSpec{Name: ToolExtractMetadata, Fields: []string{"sender_identity"}}
	res := metadataResult(uuid.New(), "John Hale")
	payload, _ := decodePayload(spec, res)

	if enriched.mergeResult(spec, res, payload) {
		t.Error("mergeResult() = true on finalized record")
	}
	if len(enriched.Fields) != 0 {
		t.Errorf("fields mutated after finalize: %v", enriched.Fields)
	}
}

func TestWorkerCount(t *testing.T) {
	tests := []struct {
		limit int
		tools int
		want  int
	}{
		{4, 2, 2},
		{4, 6, 4},
		{0, 3, 3},
		{0, 8, 4},
		{1, 0, 1},
	}

	for _, tt := range tests {
		if got := workerCount(tt.limit, tt.tools); got != tt.want {
			t.Errorf("workerCount(%d, %d) = %d, want %d", tt.limit, tt.tools, got, tt.want)
		}
	}
}
