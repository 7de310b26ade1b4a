// Package invoke executes single tool invocations with per-tool timeouts,
// classified failures, and bounded retries. Every call resolves to a typed
// Result; errors never escape this boundary.
package invoke

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/epistlelabs/epistle/internal/faults"
)

// Source tags where a result's value came from. The tag is set exactly
// once and never lost; completeness scoring is built on it.
type Source string

const (
	// SourceActual marks a value produced by a remote agent.
	SourceActual Source = "actual"
	// SourceFallback marks a substituted default after retries were
	// exhausted, the failure was non-retryable, or the phase was skipped.
	SourceFallback Source = "fallback"
)

// Outcome reports whether an invocation ultimately succeeded.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Request describes one tool invocation. Immutable once issued; owned by
// the invocation client until a reply or timeout resolves it.
type Request struct {
	RequestID  uuid.UUID
	Tool       string
	Phase      string
	Parameters json.RawMessage
	// Fallback is the default payload matching the tool's output shape,
	// substituted when no actual result can be obtained.
	Fallback json.RawMessage
	IssuedAt time.Time
}

// NewRequest creates a Request with a fresh id and timestamp.
func NewRequest(tool, phase string, parameters, fallback json.RawMessage) Request {
	return Request{
		RequestID:  uuid.New(),
		Tool:       tool,
		Phase:      phase,
		Parameters: parameters,
		Fallback:   fallback,
		IssuedAt:   time.Now(),
	}
}

// Result is the terminal outcome of one invocation: either an actual
// payload from an agent or the request's fallback payload with the
// failure that forced it.
type Result struct {
	RequestID   uuid.UUID
	Tool        string
	Phase       string
	Outcome     Outcome
	Source      Source
	Payload     json.RawMessage
	ErrorDetail string
	Category    faults.Category
	Attempts    int
	Elapsed     time.Duration
}
