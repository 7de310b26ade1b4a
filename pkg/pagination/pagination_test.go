package pagination_test

import (
	"net/url"
	"testing"

	"github.com/epistlelabs/epistle/pkg/pagination"
)

func testConfig() pagination.Config {
	return pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}
}

func TestConfigFinalizeDefaults(t *testing.T) {
	cfg := pagination.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if cfg.DefaultPageSize != 20 {
		t.Errorf("DefaultPageSize = %d, want 20", cfg.DefaultPageSize)
	}
	if cfg.MaxPageSize != 100 {
		t.Errorf("MaxPageSize = %d, want 100", cfg.MaxPageSize)
	}
}

func TestConfigFinalizeRejectsDefaultAboveMax(t *testing.T) {
	cfg := pagination.Config{DefaultPageSize: 200, MaxPageSize: 100}
	if err := cfg.Finalize(nil); err == nil {
		t.Error("Finalize() error = nil")
	}
}

func TestConfigMerge(t *testing.T) {
	cfg := testConfig()
	cfg.Merge(&pagination.Config{MaxPageSize: 50})

	if cfg.DefaultPageSize != 20 {
		t.Errorf("DefaultPageSize = %d, want untouched 20", cfg.DefaultPageSize)
	}
	if cfg.MaxPageSize != 50 {
		t.Errorf("MaxPageSize = %d, want 50", cfg.MaxPageSize)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name         string
		req          pagination.PageRequest
		wantPage     int
		wantPageSize int
	}{
		{"zero values", pagination.PageRequest{}, 1, 20},
		{"negative page", pagination.PageRequest{Page: -3, PageSize: 10}, 1, 10},
		{"oversized page size", pagination.PageRequest{Page: 2, PageSize: 500}, 2, 100},
		{"valid request", pagination.PageRequest{Page: 4, PageSize: 25}, 4, 25},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.req.Normalize(testConfig())
			if tc.req.Page != tc.wantPage {
				t.Errorf("Page = %d, want %d", tc.req.Page, tc.wantPage)
			}
			if tc.req.PageSize != tc.wantPageSize {
				t.Errorf("PageSize = %d, want %d", tc.req.PageSize, tc.wantPageSize)
			}
		})
	}
}

func TestOffset(t *testing.T) {
	req := pagination.PageRequest{Page: 3, PageSize: 25}
	if got := req.Offset(); got != 50 {
		t.Errorf("Offset() = %d, want 50", got)
	}
}

func TestPageRequestFromQuery(t *testing.T) {
	values := url.Values{}
	values.Set("page", "2")
	values.Set("page_size", "10")
	values.Set("search", "estate")
	values.Set("sort", "filename,-created_at")

	req := pagination.PageRequestFromQuery(values, testConfig())

	if req.Page != 2 || req.PageSize != 10 {
		t.Errorf("req = %+v", req)
	}
	if req.Search == nil || *req.Search != "estate" {
		t.Errorf("Search = %v, want estate", req.Search)
	}
	if len(req.Sort) != 2 || req.Sort[0].Field != "filename" || !req.Sort[1].Descending {
		t.Errorf("Sort = %v", req.Sort)
	}
}

func TestPageRequestFromQueryEmpty(t *testing.T) {
	req := pagination.PageRequestFromQuery(url.Values{}, testConfig())

	if req.Page != 1 || req.PageSize != 20 {
		t.Errorf("req = %+v, want normalized defaults", req)
	}
	if req.Search != nil {
		t.Errorf("Search = %v, want nil", req.Search)
	}
	if req.Sort != nil {
		t.Errorf("Sort = %v, want nil", req.Sort)
	}
}

func TestNewPageResult(t *testing.T) {
	tests := []struct {
		name           string
		total          int
		pageSize       int
		wantTotalPages int
	}{
		{"exact pages", 100, 25, 4},
		{"partial final page", 101, 25, 5},
		{"empty result", 0, 25, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := pagination.NewPageResult([]string{"a"}, tc.total, 1, tc.pageSize)
			if result.TotalPages != tc.wantTotalPages {
				t.Errorf("TotalPages = %d, want %d", result.TotalPages, tc.wantTotalPages)
			}
		})
	}
}

func TestNewPageResultNilData(t *testing.T) {
	result := pagination.NewPageResult[string](nil, 0, 1, 20)
	if result.Data == nil {
		t.Error("Data = nil, want empty slice")
	}
}
