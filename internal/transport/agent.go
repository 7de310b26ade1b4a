package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ToolFunc executes one tool invocation on an agent worker.
type ToolFunc func(ctx context.Context, parameters json.RawMessage) (json.RawMessage, error)

// ToolError lets a tool report a status-coded failure that clients can
// classify by code (e.g. 429 for overload, 422 for invalid input).
type ToolError struct {
	Code    int
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

// Agent is the worker-side connection to the router. It registers the
// tools it serves and executes invocations concurrently, replying on the
// original correlation id.
type Agent struct {
	id      string
	tools   map[string]ToolFunc
	logger  *slog.Logger
	writeMu sync.Mutex
	ws      *websocket.Conn
}

// NewAgent creates an agent worker with the given identity.
func NewAgent(id string, logger *slog.Logger) *Agent {
	return &Agent{
		id:     id,
		tools:  make(map[string]ToolFunc),
		logger: logger.With("system", "agent", "agent_id", id),
	}
}

// Handle registers the handler for a named tool. Must be called before Run.
func (a *Agent) Handle(tool string, fn ToolFunc) {
	a.tools[tool] = fn
}

// Run connects to the router, registers the agent's tools, and serves
// invocations until ctx is cancelled or the connection drops.
func (a *Agent) Run(ctx context.Context, url string) error {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial router: %w", err)
	}
	a.ws = ws
	defer ws.Close()

	if err := a.register(); err != nil {
		return err
	}

	a.logger.Info("agent serving", "tools", len(a.tools))

	go func() {
		<-ctx.Done()
		ws.Close()
	}()

	for {
		var msg Message
		if err := ws.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read invocation: %w", err)
		}

		if msg.Method != MethodInvokeTool {
			continue
		}

		go a.execute(ctx, msg)
	}
}

func (a *Agent) register() error {
	names := make([]string, 0, len(a.tools))
	for tool := range a.tools {
		names = append(names, tool)
	}

	params, _ := json.Marshal(RegisterAgentParams{AgentID: a.id, ToolNames: names})
	msg := Message{
		ID:     uuid.NewString(),
		Method: MethodRegisterAgent,
		Params: params,
	}

	a.ws.SetReadDeadline(time.Now().Add(registrationDeadline))
	defer a.ws.SetReadDeadline(time.Time{})

	if err := a.write(msg); err != nil {
		return fmt.Errorf("register agent: %w", err)
	}

	var reply Message
	if err := a.ws.ReadJSON(&reply); err != nil {
		return fmt.Errorf("read registration reply: %w", err)
	}
	if reply.Error != nil {
		return fmt.Errorf("register agent: %w", reply.Error)
	}

	return nil
}

// execute runs one invocation and replies with its result or error.
func (a *Agent) execute(ctx context.Context, msg Message) {
	var params InvokeParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		a.reply(Message{ID: msg.ID, Error: &WireError{Code: 400, Message: "invalid invoke params"}})
		return
	}

	fn, ok := a.tools[params.ToolName]
	if !ok {
		a.reply(Message{ID: msg.ID, Error: &WireError{Code: 404, Message: "unknown tool " + params.ToolName}})
		return
	}

	start := time.Now()
	result, err := fn(ctx, params.Parameters)
	if err != nil {
		a.logger.Warn(
			"tool failed",
			"tool", params.ToolName,
			"duration", time.Since(start),
			"error", err,
		)
		a.reply(Message{ID: msg.ID, Error: toWireError(err)})
		return
	}

	a.logger.Info("tool executed", "tool", params.ToolName, "duration", time.Since(start))
	a.reply(Message{ID: msg.ID, Result: result})
}

func (a *Agent) reply(msg Message) {
	if err := a.write(msg); err != nil {
		a.logger.Warn("reply write failed", "id", msg.ID, "error", err)
	}
}

func (a *Agent) write(msg Message) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	return a.ws.WriteJSON(msg)
}

func toWireError(err error) *WireError {
	var te *ToolError
	if errors.As(err, &te) {
		return &WireError{Code: te.Code, Message: te.Message}
	}
	return &WireError{Message: err.Error()}
}
