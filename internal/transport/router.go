package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// sendBuffer bounds the per-connection outbound queue. A connection
	// that cannot drain its queue is considered dead and dropped.
	sendBuffer = 64

	registrationDeadline = 10 * time.Second
)

// Router accepts persistent connections from agent workers and
// orchestrator clients, maintains the live tool registry, and forwards
// correlated request/response messages between them. Retry policy lives
// in the invoking client, never here.
type Router struct {
	upgrader websocket.Upgrader
	registry *registry
	pending  *pendingTable
	logger   *slog.Logger
}

// NewRouter creates a Router.
func NewRouter(logger *slog.Logger) *Router {
	return &Router{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1 << 20,
			WriteBufferSize: 1 << 20,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		registry: newRegistry(),
		pending:  newPendingTable(),
		logger:   logger.With("system", "router"),
	}
}

// Handler returns the WebSocket endpoint handler for agent and client
// connections.
func (r *Router) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ws, err := r.upgrader.Upgrade(w, req, nil)
		if err != nil {
			r.logger.Error("websocket upgrade failed", "error", err)
			return
		}
		go r.serve(ws)
	})
}

// conn wraps one WebSocket connection with a serialized outbound queue.
type conn struct {
	ws        *websocket.Conn
	send      chan Message
	done      chan struct{}
	closeOnce sync.Once
}

func newConn(ws *websocket.Conn) *conn {
	return &conn{
		ws:   ws,
		send: make(chan Message, sendBuffer),
		done: make(chan struct{}),
	}
}

func (c *conn) writeLoop() {
	for {
		select {
		case msg := <-c.send:
			if err := c.ws.WriteJSON(msg); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// enqueue queues a message for delivery. Returns false when the
// connection is closed or its queue is full.
func (c *conn) enqueue(msg Message) bool {
	select {
	case c.send <- msg:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.ws.Close()
	})
}

// serve drives one connection: registration handshake first, then the
// read loop appropriate to the connection's role.
func (r *Router) serve(ws *websocket.Conn) {
	c := newConn(ws)
	go c.writeLoop()
	defer c.close()

	ws.SetReadDeadline(time.Now().Add(registrationDeadline))
	var first Message
	if err := ws.ReadJSON(&first); err != nil {
		r.logger.Warn("connection dropped before registration", "error", err)
		return
	}
	ws.SetReadDeadline(time.Time{})

	switch first.Method {
	case MethodRegisterAgent:
		var params RegisterAgentParams
		if err := json.Unmarshal(first.Params, &params); err != nil || params.AgentID == "" {
			c.enqueue(errorReply(first.ID, CodeBadMessage, "invalid agent registration"))
			return
		}
		r.registry.register(params.AgentID, params.ToolNames, c)
		c.enqueue(Message{ID: first.ID, Result: registeredResult()})
		r.logger.Info("agent registered", "agent_id", params.AgentID, "tools", params.ToolNames)
		r.serveAgent(c, params.AgentID)

	case MethodRegisterClient:
		var params RegisterClientParams
		if err := json.Unmarshal(first.Params, &params); err != nil {
			c.enqueue(errorReply(first.ID, CodeBadMessage, "invalid client registration"))
			return
		}
		c.enqueue(Message{ID: first.ID, Result: registeredResult()})
		r.logger.Info("client registered", "client_id", params.ClientID)
		r.serveClient(c, params.ClientID)

	default:
		c.enqueue(errorReply(first.ID, CodeBadMessage, "first message must register"))
	}
}

// serveClient forwards invocations from an orchestrator client to a
// serving agent, recording each in the pending table.
func (r *Router) serveClient(c *conn, clientID string) {
	defer func() {
		r.pending.dropOrigin(c)
		r.logger.Info("client disconnected", "client_id", clientID)
	}()

	for {
		var msg Message
		if err := c.ws.ReadJSON(&msg); err != nil {
			return
		}

		if msg.Method != MethodInvokeTool {
			c.enqueue(errorReply(msg.ID, CodeBadMessage, "unsupported method: "+msg.Method))
			continue
		}

		var params InvokeParams
		if err := json.Unmarshal(msg.Params, &params); err != nil || params.ToolName == "" {
			c.enqueue(errorReply(msg.ID, CodeBadMessage, "invalid invoke params"))
			continue
		}

		reg, ok := r.registry.lookup(params.ToolName)
		if !ok {
			c.enqueue(errorReply(msg.ID, CodeNoAgent, "no agent available for tool "+params.ToolName))
			continue
		}

		if !r.pending.add(msg.ID, c, reg.conn) {
			c.enqueue(errorReply(msg.ID, CodeDuplicateID, "request id already in flight"))
			continue
		}

		if !reg.conn.enqueue(msg) {
			r.pending.resolve(msg.ID)
			c.enqueue(errorReply(msg.ID, CodeAgentGone, "agent connection lost"))
		}
	}
}

// serveAgent forwards correlated replies from an agent back to their
// originating clients. Replies whose id is no longer pending are dropped
// silently; the slot was already finalized.
func (r *Router) serveAgent(c *conn, agentID string) {
	defer func() {
		r.registry.unregister(agentID, c)
		r.failInflight(c)
		r.logger.Info("agent disconnected", "agent_id", agentID)
	}()

	for {
		var msg Message
		if err := c.ws.ReadJSON(&msg); err != nil {
			return
		}

		entry, ok := r.pending.resolve(msg.ID)
		if !ok {
			r.logger.Debug("dropping unsolicited reply", "id", msg.ID, "agent_id", agentID)
			continue
		}

		entry.origin.enqueue(Message{ID: msg.ID, Result: msg.Result, Error: msg.Error})
	}
}

// failInflight resolves every request still routed over a disconnected
// agent connection with a connection-category failure.
func (r *Router) failInflight(agent *conn) {
	for id, origin := range r.pending.failAgent(agent) {
		origin.enqueue(errorReply(id, CodeAgentGone, "agent disconnected mid-flight"))
	}
}

func errorReply(id string, code int, message string) Message {
	return Message{
		ID:    id,
		Error: &WireError{Code: code, Message: message},
	}
}
