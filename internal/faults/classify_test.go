package faults_test

import (
	"context"
	"errors"
	"testing"

	"github.com/epistlelabs/epistle/internal/faults"
)

type fakeNetError struct {
	timeout bool
}

func (e *fakeNetError) Error() string   { return "fake net error" }
func (e *fakeNetError) Timeout() bool   { return e.timeout }
func (e *fakeNetError) Temporary() bool { return true }

func TestClassifyStatusCodes(t *testing.T) {
	tests := []struct {
		code int
		want faults.Category
	}{
		{401, faults.CategoryAuthentication},
		{403, faults.CategoryAuthentication},
		{408, faults.CategoryTimeout},
		{504, faults.CategoryTimeout},
		{409, faults.CategoryConflict},
		{429, faults.CategoryOverloaded},
		{503, faults.CategoryOverloaded},
		{400, faults.CategoryInvalidData},
		{422, faults.CategoryInvalidData},
		{502, faults.CategoryConnection},
	}

	for _, tt := range tests {
		got := faults.Classify(faults.Signal{StatusCode: tt.code})
		if got != tt.want {
			t.Errorf("Classify(status %d) = %s, want %s", tt.code, got, tt.want)
		}
	}
}

func TestClassifyStatusOutranksMessage(t *testing.T) {
	// A 503 payload mentioning a timeout is still an overload signal.
	got := faults.Classify(faults.Signal{
		StatusCode: 503,
		Message:    "request timed out waiting for capacity",
	})
	if got != faults.CategoryOverloaded {
		t.Errorf("Classify(503 + timeout message) = %s, want %s", got, faults.CategoryOverloaded)
	}
}

func TestClassifyErrorTypes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want faults.Category
	}{
		{"deadline exceeded", context.DeadlineExceeded, faults.CategoryTimeout},
		{"wrapped deadline", errors.Join(errors.New("invoke"), context.DeadlineExceeded), faults.CategoryTimeout},
		{"net timeout", &fakeNetError{timeout: true}, faults.CategoryTimeout},
		{"net failure", &fakeNetError{timeout: false}, faults.CategoryConnection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := faults.Classify(faults.Signal{Err: tt.err}); got != tt.want {
				t.Errorf("Classify(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassifyKeywords(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    faults.Category
	}{
		{"overloaded", "upstream is overloaded", faults.CategoryOverloaded},
		{"rate limit", "rate limit exceeded, slow down", faults.CategoryOverloaded},
		{"timeout", "operation timed out after 30s", faults.CategoryTimeout},
		{"connection refused", "dial tcp: connection refused", faults.CategoryConnection},
		{"no agent", "no agent registered for tool", faults.CategoryConnection},
		{"unauthorized", "unauthorized: bad credentials", faults.CategoryAuthentication},
		{"api key", "missing api key", faults.CategoryAuthentication},
		{"conflict", "version mismatch on record", faults.CategoryConflict},
		{"invalid", "invalid payload shape", faults.CategoryInvalidData},
		{"schema", "schema validation error", faults.CategoryInvalidData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := faults.Classify(faults.Signal{Err: errors.New(tt.message)})
			if got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.message, got, tt.want)
			}
		})
	}
}

func TestClassifyOverloadOutranksTimeoutKeyword(t *testing.T) {
	// Both keyword families match; the overload rule is checked first.
	got := faults.Classify(faults.Signal{Message: "rate limit hit, request timed out"})
	if got != faults.CategoryOverloaded {
		t.Errorf("Classify(ambiguous message) = %s, want %s", got, faults.CategoryOverloaded)
	}
}

func TestClassifyUnknown(t *testing.T) {
	tests := []struct {
		name string
		sig  faults.Signal
	}{
		{"empty signal", faults.Signal{}},
		{"unmatched message", faults.Signal{Err: errors.New("something strange happened")}},
		{"unmapped status", faults.Signal{StatusCode: 418, Message: "teapot"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := faults.Classify(tt.sig); got != faults.CategoryUnknown {
				t.Errorf("Classify(%+v) = %s, want %s", tt.sig, got, faults.CategoryUnknown)
			}
		})
	}
}

func TestCategoryValid(t *testing.T) {
	for _, cat := range faults.Categories() {
		if !cat.Valid() {
			t.Errorf("Valid() = false for taxonomy category %s", cat)
		}
	}
	if faults.Category("nonsense").Valid() {
		t.Error("Valid() = true for category outside the taxonomy")
	}
}
