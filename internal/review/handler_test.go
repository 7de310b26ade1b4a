package review_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/epistlelabs/epistle/internal/review"
	"github.com/epistlelabs/epistle/pkg/pagination"
	"github.com/epistlelabs/epistle/pkg/routes"
)

type stubSystem struct {
	listPage    pagination.PageRequest
	listFilters review.Filters
	listResult  *pagination.PageResult[review.Task]
	listErr     error

	findTask *review.Task
	findErr  error

	resolveID   uuid.UUID
	resolveCmd  review.ResolveCommand
	resolveTask *review.Task
	resolveErr  error
}

func (s *stubSystem) Handler() *review.Handler { return nil }

func (s *stubSystem) List(
	_ context.Context,
	page pagination.PageRequest,
	filters review.Filters,
) (*pagination.PageResult[review.Task], error) {
	s.listPage = page
	s.listFilters = filters
	return s.listResult, s.listErr
}

func (s *stubSystem) Find(_ context.Context, _ uuid.UUID) (*review.Task, error) {
	return s.findTask, s.findErr
}

func (s *stubSystem) FindByDocument(_ context.Context, _ uuid.UUID) (*review.Task, error) {
	return s.findTask, s.findErr
}

func (s *stubSystem) Create(_ context.Context, _ review.CreateCommand) (*review.Task, error) {
	return nil, nil
}

func (s *stubSystem) Resolve(
	_ context.Context,
	id uuid.UUID,
	cmd review.ResolveCommand,
) (*review.Task, error) {
	s.resolveID = id
	s.resolveCmd = cmd
	return s.resolveTask, s.resolveErr
}

func newTestServer(sys review.System) *httptest.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}

	mux := http.NewServeMux()
	routes.Register(mux, review.NewHandler(sys, logger, cfg).Routes())

	return httptest.NewServer(mux)
}

func sampleTask() *review.Task {
	return &review.Task{
		ID:                  uuid.New(),
		DocumentID:          uuid.New(),
		Reasons:             []string{"missing sender identity"},
		MissingFields:       []string{"sender_identity"},
		LowConfidenceFields: []string{"sender_identity"},
		Status:              review.StatusPending,
		CreatedAt:           time.Now().UTC(),
	}
}

func TestHandlerList(t *testing.T) {
	task := sampleTask()
	result := pagination.NewPageResult([]review.Task{*task}, 1, 1, 20)

	sys := &stubSystem{listResult: &result}
	server := newTestServer(sys)
	defer server.Close()

	resp, err := http.Get(server.URL + "/reviews?status=pending&page=2&page_size=10")
	if err != nil {
		t.Fatalf("GET /reviews error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got pagination.PageResult[review.Task]
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Total != 1 || len(got.Data) != 1 {
		t.Errorf("result = %+v", got)
	}

	if sys.listPage.Page != 2 || sys.listPage.PageSize != 10 {
		t.Errorf("page request = %+v", sys.listPage)
	}
	if sys.listFilters.Status == nil || *sys.listFilters.Status != review.StatusPending {
		t.Errorf("filters = %+v, want status pending", sys.listFilters)
	}
}

func TestHandlerFind(t *testing.T) {
	task := sampleTask()
	sys := &stubSystem{findTask: task}
	server := newTestServer(sys)
	defer server.Close()

	resp, err := http.Get(server.URL + "/reviews/" + task.ID.String())
	if err != nil {
		t.Fatalf("GET /reviews/{id} error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got review.Task
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != task.ID {
		t.Errorf("ID = %s, want %s", got.ID, task.ID)
	}
}

func TestHandlerFindStatuses(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		err    error
		status int
	}{
		{"invalid uuid", "not-a-uuid", nil, http.StatusBadRequest},
		{"not found", uuid.NewString(), review.ErrNotFound, http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sys := &stubSystem{findErr: tc.err}
			server := newTestServer(sys)
			defer server.Close()

			resp, err := http.Get(server.URL + "/reviews/" + tc.id)
			if err != nil {
				t.Fatalf("GET error = %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tc.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.status)
			}
		})
	}
}

func TestHandlerSearch(t *testing.T) {
	result := pagination.NewPageResult([]review.Task{}, 0, 1, 20)
	sys := &stubSystem{listResult: &result}
	server := newTestServer(sys)
	defer server.Close()

	documentID := uuid.New()
	body, _ := json.Marshal(map[string]any{
		"page":        1,
		"page_size":   300,
		"document_id": documentID,
	})

	resp, err := http.Post(server.URL+"/reviews/search", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /reviews/search error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if sys.listPage.PageSize != 100 {
		t.Errorf("PageSize = %d, want clamped to 100", sys.listPage.PageSize)
	}
	if sys.listFilters.DocumentID == nil || *sys.listFilters.DocumentID != documentID {
		t.Errorf("filters = %+v, want document id", sys.listFilters)
	}
}

func TestHandlerSearchBadBody(t *testing.T) {
	server := newTestServer(&stubSystem{})
	defer server.Close()

	resp, err := http.Post(server.URL+"/reviews/search", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHandlerResolve(t *testing.T) {
	task := sampleTask()
	task.Status = review.StatusResolved

	sys := &stubSystem{resolveTask: task}
	server := newTestServer(sys)
	defer server.Close()

	body := `{"resolved_by":"archivist","resolution":"confirmed sender from envelope"}`
	resp, err := http.Post(
		server.URL+"/reviews/"+task.ID.String()+"/resolve",
		"application/json",
		strings.NewReader(body),
	)
	if err != nil {
		t.Fatalf("POST resolve error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if sys.resolveID != task.ID {
		t.Errorf("resolve id = %s, want %s", sys.resolveID, task.ID)
	}
	if sys.resolveCmd.ResolvedBy != "archivist" {
		t.Errorf("cmd = %+v", sys.resolveCmd)
	}
}

func TestHandlerResolveConflict(t *testing.T) {
	sys := &stubSystem{resolveErr: review.ErrAlreadyResolved}
	server := newTestServer(sys)
	defer server.Close()

	resp, err := http.Post(
		server.URL+"/reviews/"+uuid.NewString()+"/resolve",
		"application/json",
		strings.NewReader(`{"resolved_by":"archivist","resolution":"done"}`),
	)
	if err != nil {
		t.Fatalf("POST resolve error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
}
