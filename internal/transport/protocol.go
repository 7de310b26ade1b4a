// Package transport implements the message router that connects
// orchestrator clients to remote agent workers over persistent WebSocket
// connections, correlating asynchronous request/response exchanges by id.
package transport

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Method names accepted by the router.
const (
	MethodRegisterAgent  = "register_agent"
	MethodRegisterClient = "register_client"
	MethodInvokeTool     = "invoke_tool"
)

// Router-originated error codes. Kept outside the HTTP status range so
// they never collide with status-coded agent failures.
const (
	CodeNoAgent     = 1001
	CodeAgentGone   = 1002
	CodeBadMessage  = 1003
	CodeDuplicateID = 1004
)

// Message is the single wire frame exchanged on every connection.
// Requests carry Method and Params; replies echo the request ID with
// either Result or Error set. Correlation is by ID, never arrival order.
type Message struct {
	ID     string          `json:"id"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *WireError      `json:"error,omitempty"`
}

// WireError is the error payload of a failed reply. Agent tools may set
// Code to an HTTP-style status so callers can classify by code; router
// errors use the Code* constants above.
type WireError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *WireError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
	}
	return e.Message
}

// RegisterAgentParams announces an agent and the tools it serves.
type RegisterAgentParams struct {
	AgentID   string   `json:"agent_id"`
	ToolNames []string `json:"tool_names"`
}

// RegisterClientParams announces an orchestrator client connection.
type RegisterClientParams struct {
	ClientID string `json:"client_id"`
}

// InvokeParams carries one tool invocation through the router.
type InvokeParams struct {
	ToolName   string          `json:"tool_name"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

// IsRouterUnavailable reports whether err is a router-originated failure
// meaning no connected agent can serve the request. Callers treat these
// as connection-category failures so the standard retry path applies.
func IsRouterUnavailable(err error) bool {
	var we *WireError
	if !errors.As(err, &we) {
		return false
	}
	return we.Code == CodeNoAgent || we.Code == CodeAgentGone
}

func registeredResult() json.RawMessage {
	return json.RawMessage(`{"registered":true}`)
}
