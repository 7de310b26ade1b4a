package formatting_test

import (
	"errors"
	"testing"

	"github.com/epistlelabs/epistle/pkg/formatting"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestParseDirectJSON(t *testing.T) {
	got, err := formatting.Parse[sample](`{"name":"ledger","count":3}`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got.Name != "ledger" || got.Count != 3 {
		t.Errorf("Parse() = %+v", got)
	}
}

func TestParseFencedJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "json fence",
			content: "Here you go:\n```json\n{\"name\":\"ledger\",\"count\":3}\n```",
		},
		{
			name:    "bare fence",
			content: "```\n{\"name\":\"ledger\",\"count\":3}\n```",
		},
		{
			name:    "fence with surrounding prose",
			content: "leading text\n```json\n{\"name\":\"ledger\",\"count\":3}\n```\ntrailing text",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := formatting.Parse[sample](tc.content)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got.Name != "ledger" || got.Count != 3 {
				t.Errorf("Parse() = %+v", got)
			}
		})
	}
}

func TestParseFailure(t *testing.T) {
	_, err := formatting.Parse[sample]("not json at all")
	if !errors.Is(err, formatting.ErrParseFailed) {
		t.Errorf("Parse() error = %v, want ErrParseFailed", err)
	}
}

func TestParseMap(t *testing.T) {
	got, err := formatting.Parse[map[string]any](`{"topics":["estate","travel"]}`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if _, ok := got["topics"]; !ok {
		t.Errorf("Parse() = %v, missing topics key", got)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n         int64
		precision int
		want      string
	}{
		{0, 2, "0 B"},
		{512, 0, "512 B"},
		{1024, 0, "1 KB"},
		{1536, 1, "1.5 KB"},
		{10 * 1024 * 1024, 0, "10 MB"},
		{1024, -3, "1 KB"},
	}

	for _, tc := range tests {
		if got := formatting.FormatBytes(tc.n, tc.precision); got != tc.want {
			t.Errorf("FormatBytes(%d, %d) = %q, want %q", tc.n, tc.precision, got, tc.want)
		}
	}
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"512", 512},
		{"1KB", 1024},
		{"1 KB", 1024},
		{"10MB", 10 * 1024 * 1024},
		{"10mb", 10 * 1024 * 1024},
		{"1.5KB", 1536},
		{"  2GB  ", 2 * 1024 * 1024 * 1024},
	}

	for _, tc := range tests {
		got, err := formatting.ParseBytes(tc.in)
		if err != nil {
			t.Errorf("ParseBytes(%q) error = %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseBytes(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParseBytesFailures(t *testing.T) {
	for _, in := range []string{"", "plenty", "10XB", "MB"} {
		if _, err := formatting.ParseBytes(in); err == nil {
			t.Errorf("ParseBytes(%q) error = nil", in)
		}
	}
}
