package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"slices"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/epistlelabs/epistle/internal/budget"
	"github.com/epistlelabs/epistle/internal/faults"
	"github.com/epistlelabs/epistle/internal/invoke"
	"github.com/epistlelabs/epistle/internal/pipeline"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type failSpec struct {
	category faults.Category
	detail   string
}

// fakeInvoker resolves every request to a typed result from fixtures:
// either an actual payload for the tool or a fallback failure.
type fakeInvoker struct {
	mu       sync.Mutex
	payloads map[string]map[string]any
	failures map[string]failSpec
	calls    []string
}

func (f *fakeInvoker) Invoke(_ context.Context, req invoke.Request) invoke.Result {
	f.mu.Lock()
	f.calls = append(f.calls, req.Tool)
	f.mu.Unlock()

	if spec, ok := f.failures[req.Tool]; ok {
		return invoke.Result{
			RequestID:   req.RequestID,
			Tool:        req.Tool,
			Phase:       req.Phase,
			Outcome:     invoke.OutcomeFailure,
			Source:      invoke.SourceFallback,
			Payload:     req.Fallback,
			ErrorDetail: spec.detail,
			Category:    spec.category,
			Attempts:    1,
		}
	}

	payload, _ := json.Marshal(f.payloads[req.Tool])
	return invoke.Result{
		RequestID: req.RequestID,
		Tool:      req.Tool,
		Phase:     req.Phase,
		Outcome:   invoke.OutcomeSuccess,
		Source:    invoke.SourceActual,
		Payload:   payload,
		Attempts:  1,
	}
}

func (f *fakeInvoker) called(tool string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Contains(f.calls, tool)
}

func fullPayloads() map[string]map[string]any {
	return map[string]map[string]any{
		pipeline.ToolExtractMetadata: {
			"sender_identity":    "John Hale",
			"recipient_identity": "Margaret Hale",
			"document_date":      "12 March 1864",
			"document_type":      "letter",
		},
		pipeline.ToolDetectStructure: {
			"sections": []map[string]any{{"kind": "paragraph", "offset": 0}},
		},
		pipeline.ToolExtractEntities: {
			"entities": []string{"Boston", "Margaret Hale"},
		},
		pipeline.ToolSummarizeContent: {
			"summary": "News from the regiment and thoughts of home.",
		},
		pipeline.ToolClassifyTopics: {
			"topics": []string{"military", "family"},
		},
		pipeline.ToolHistoricalContext: {
			"historical_context": "Written during the American Civil War.",
		},
	}
}

func testRuntime(inv invoke.System) *pipeline.Runtime {
	return &pipeline.Runtime{
		Invoker:               inv,
		Governor:              budget.New(100, 0.25, testLogger()),
		Phases:                pipeline.DefaultPhases(),
		RequiredFields:        pipeline.DefaultRequiredFields(),
		CriticalFields:        pipeline.DefaultCriticalFields(),
		CompletenessThreshold: 0.8,
		WorkerLimit:           2,
		Logger:                testLogger(),
	}
}

func testDocument() pipeline.Document {
	return pipeline.Document{
		ID:       uuid.New(),
		Filename: "hale_1864_03_12.txt",
		RawText:  "Dear Margaret,\n\nThe regiment moves south tomorrow.\n\nYours, John",
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestExecuteAllToolsSucceed(t *testing.T) {
	inv := &fakeInvoker{payloads: fullPayloads()}
	rt := testRuntime(inv)

	enriched, err := pipeline.Execute(context.Background(), rt, testDocument())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if !enriched.Finalized {
		t.Error("Finalized = false")
	}
	if enriched.Completeness != 1.0 {
		t.Errorf("Completeness = %f, want 1.0", enriched.Completeness)
	}
	if enriched.ReviewRequired {
		t.Errorf("ReviewRequired = true, reasons %v", enriched.ReviewReasons)
	}

	for _, name := range rt.RequiredFields {
		f, ok := enriched.Fields[name]
		if !ok {
			t.Fatalf("field %s missing", name)
		}
		if f.Source != invoke.SourceActual {
			t.Errorf("field %s Source = %s, want %s", name, f.Source, invoke.SourceActual)
		}
	}

	// Phase costs accumulate the configured estimates.
	if got := enriched.PhaseCosts[pipeline.PhaseExtraction]; !almostEqual(got, 0.02) {
		t.Errorf("extraction cost = %f, want 0.02", got)
	}
	if got := enriched.PhaseCosts[pipeline.PhaseStructureEntities]; !almostEqual(got, 0.05) {
		t.Errorf("structure cost = %f, want 0.05", got)
	}
	if got := enriched.PhaseCosts[pipeline.PhaseHistoricalContext]; !almostEqual(got, 0.25) {
		t.Errorf("historical cost = %f, want 0.25", got)
	}
	if got := rt.Governor.DaySpend(); !almostEqual(got, 0.38) {
		t.Errorf("DaySpend() = %f, want 0.38", got)
	}
}

func TestExecuteAgentReportedCostWins(t *testing.T) {
	payloads := fullPayloads()
	payloads[pipeline.ToolSummarizeContent]["cost_usd"] = 0.5
	inv := &fakeInvoker{payloads: payloads}
	rt := testRuntime(inv)

	enriched, err := pipeline.Execute(context.Background(), rt, testDocument())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	// 0.5 reported plus the 0.01 topic estimate.
	if got := enriched.PhaseCosts[pipeline.PhaseContentAnalysis]; !almostEqual(got, 0.51) {
		t.Errorf("content analysis cost = %f, want 0.51", got)
	}

	// The reserved cost key never becomes a field.
	if _, ok := enriched.Fields["cost_usd"]; ok {
		t.Error("cost_usd leaked into fields")
	}
}

func TestExecuteCriticalFailureRoutesToReview(t *testing.T) {
	inv := &fakeInvoker{
		payloads: fullPayloads(),
		failures: map[string]failSpec{
			pipeline.ToolExtractMetadata: {
				category: faults.CategoryInvalidData,
				detail:   "invalid payload shape",
			},
		},
	}
	rt := testRuntime(inv)

	enriched, err := pipeline.Execute(context.Background(), rt, testDocument())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	f := enriched.Fields["sender_identity"]
	if f.Source != invoke.SourceFallback {
		t.Errorf("sender_identity Source = %s, want %s", f.Source, invoke.SourceFallback)
	}
	if f.Reason != "invalid payload shape" {
		t.Errorf("sender_identity Reason = %q", f.Reason)
	}

	// Three of six required fields came from the failed tool.
	if enriched.Completeness != 0.5 {
		t.Errorf("Completeness = %f, want 0.5", enriched.Completeness)
	}
	if !enriched.ReviewRequired {
		t.Fatal("ReviewRequired = false")
	}
	if !slices.Contains(enriched.ReviewReasons, "missing sender identity") {
		t.Errorf("ReviewReasons = %v, want missing sender identity", enriched.ReviewReasons)
	}
	if !slices.Contains(enriched.ReviewReasons, "low completeness: 0.50") {
		t.Errorf("ReviewReasons = %v, want low completeness: 0.50", enriched.ReviewReasons)
	}

	// Failed invocations record no cost.
	if got := enriched.PhaseCosts[pipeline.PhaseExtraction]; got != 0 {
		t.Errorf("extraction cost = %f, want 0", got)
	}
}

func TestExecuteBudgetGateSkipsExpensivePhase(t *testing.T) {
	inv := &fakeInvoker{payloads: fullPayloads()}
	rt := testRuntime(inv)

	// Push the day's spend past the 25.0 threshold before running.
	rt.Governor.RecordActual(uuid.New(), 30)

	enriched, err := pipeline.Execute(context.Background(), rt, testDocument())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if inv.called(pipeline.ToolHistoricalContext) {
		t.Error("historical_context invoked despite budget gate")
	}

	f, ok := enriched.Fields["historical_context"]
	if !ok {
		t.Fatal("historical_context field missing after skip")
	}
	if f.Source != invoke.SourceFallback {
		t.Errorf("historical_context Source = %s, want %s", f.Source, invoke.SourceFallback)
	}
	if f.Reason != "daily budget threshold reached" {
		t.Errorf("historical_context Reason = %q", f.Reason)
	}

	// The skipped field is not required, so the document still passes.
	if enriched.Completeness != 1.0 {
		t.Errorf("Completeness = %f, want 1.0", enriched.Completeness)
	}
	if enriched.ReviewRequired {
		t.Errorf("ReviewRequired = true, reasons %v", enriched.ReviewReasons)
	}
}

func TestExecuteEmptyDocument(t *testing.T) {
	inv := &fakeInvoker{payloads: fullPayloads()}
	rt := testRuntime(inv)

	_, err := pipeline.Execute(context.Background(), rt, pipeline.Document{ID: uuid.New()})
	if !errors.Is(err, pipeline.ErrEmptyDocument) {
		t.Errorf("Execute() error = %v, want %v", err, pipeline.ErrEmptyDocument)
	}
	if len(inv.calls) != 0 {
		t.Errorf("invocations = %d, want 0", len(inv.calls))
	}
}

func TestExecuteMissingPayloadFieldDowngrades(t *testing.T) {
	payloads := fullPayloads()
	delete(payloads[pipeline.ToolExtractMetadata], "document_date")
	inv := &fakeInvoker{payloads: payloads}
	rt := testRuntime(inv)

	enriched, err := pipeline.Execute(context.Background(), rt, testDocument())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	f := enriched.Fields["document_date"]
	if f.Source != invoke.SourceFallback {
		t.Errorf("document_date Source = %s, want %s", f.Source, invoke.SourceFallback)
	}

	// Sibling fields from the same payload keep actual provenance.
	if got := enriched.Fields["sender_identity"].Source; got != invoke.SourceActual {
		t.Errorf("sender_identity Source = %s, want %s", got, invoke.SourceActual)
	}

	// 5 of 6 required fields present: 0.83 passes the 0.8 threshold.
	if !almostEqual(enriched.Completeness, 5.0/6.0) {
		t.Errorf("Completeness = %f, want %f", enriched.Completeness, 5.0/6.0)
	}
	if enriched.ReviewRequired {
		t.Errorf("ReviewRequired = true, reasons %v", enriched.ReviewReasons)
	}
}

func TestExecuteCancelledContext(t *testing.T) {
	inv := &fakeInvoker{payloads: fullPayloads()}
	rt := testRuntime(inv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := pipeline.Execute(ctx, rt, testDocument()); err == nil {
		t.Error("Execute() error = nil with cancelled context")
	}
}

func TestLowConfidenceFields(t *testing.T) {
	inv := &fakeInvoker{
		payloads: fullPayloads(),
		failures: map[string]failSpec{
			pipeline.ToolExtractMetadata: {
				category: faults.CategoryAuthentication,
				detail:   "unauthorized",
			},
		},
	}
	rt := testRuntime(inv)

	enriched, err := pipeline.Execute(context.Background(), rt, testDocument())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	got := enriched.LowConfidenceFields(rt.RequiredFields)
	want := []string{"document_date", "recipient_identity", "sender_identity"}
	if !slices.Equal(got, want) {
		t.Errorf("LowConfidenceFields() = %v, want %v", got, want)
	}
}
