package transport_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/epistlelabs/epistle/internal/transport"
)

func TestWireErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *transport.WireError
		want string
	}{
		{"coded", &transport.WireError{Code: 422, Message: "bad payload"}, "bad payload (code 422)"},
		{"uncoded", &transport.WireError{Message: "bad payload"}, "bad payload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsRouterUnavailable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"no agent", &transport.WireError{Code: transport.CodeNoAgent, Message: "no agent"}, true},
		{"agent gone", &transport.WireError{Code: transport.CodeAgentGone, Message: "agent disconnected"}, true},
		{"wrapped", fmt.Errorf("invoke: %w", &transport.WireError{Code: transport.CodeNoAgent}), true},
		{"agent status code", &transport.WireError{Code: 503, Message: "busy"}, false},
		{"bad message", &transport.WireError{Code: transport.CodeBadMessage}, false},
		{"plain error", errors.New("no agent"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := transport.IsRouterUnavailable(tt.err); got != tt.want {
				t.Errorf("IsRouterUnavailable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestMessageRoundTrip(t *testing.T) {
	msg := transport.Message{
		ID:     "req-1",
		Method: transport.MethodInvokeTool,
		Params: json.RawMessage(`{"tool_name":"extract_metadata"}`),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded transport.Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.ID != msg.ID || decoded.Method != msg.Method {
		t.Errorf("round trip = %+v, want %+v", decoded, msg)
	}
	if decoded.Error != nil {
		t.Errorf("Error = %+v, want nil", decoded.Error)
	}
}

func TestErrorReplyRoundTrip(t *testing.T) {
	msg := transport.Message{
		ID:    "req-1",
		Error: &transport.WireError{Code: transport.CodeNoAgent, Message: "no agent registered for tool"},
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded transport.Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.Error == nil {
		t.Fatal("Error = nil after round trip")
	}
	if decoded.Error.Code != transport.CodeNoAgent {
		t.Errorf("Error.Code = %d, want %d", decoded.Error.Code, transport.CodeNoAgent)
	}
	if !transport.IsRouterUnavailable(decoded.Error) {
		t.Error("IsRouterUnavailable() = false for decoded no-agent error")
	}
}
