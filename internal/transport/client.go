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

	"github.com/epistlelabs/epistle/pkg/lifecycle"
)

// ErrClosed indicates the client connection has been closed.
var ErrClosed = errors.New("transport client closed")

// Client is the orchestrator-side connection to the router. It issues
// correlated tool invocations and matches asynchronous replies by
// request id. Replies arriving after their waiter gave up are discarded.
type Client struct {
	ws      *websocket.Conn
	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan Message

	logger *slog.Logger
	done   chan struct{}
	once   sync.Once
}

// Dial connects to the router, performs the client registration
// handshake, and starts the reply reader.
func Dial(ctx context.Context, url, clientID string, logger *slog.Logger) (*Client, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial router: %w", err)
	}

	c := &Client{
		ws:      ws,
		pending: make(map[string]chan Message),
		logger:  logger.With("system", "transport"),
		done:    make(chan struct{}),
	}

	if err := c.register(clientID); err != nil {
		ws.Close()
		return nil, err
	}

	go c.readLoop()
	return c, nil
}

func (c *Client) register(clientID string) error {
	params, _ := json.Marshal(RegisterClientParams{ClientID: clientID})
	msg := Message{
		ID:     uuid.NewString(),
		Method: MethodRegisterClient,
		Params: params,
	}

	c.ws.SetReadDeadline(time.Now().Add(registrationDeadline))
	defer c.ws.SetReadDeadline(time.Time{})

	if err := c.write(msg); err != nil {
		return fmt.Errorf("register client: %w", err)
	}

	var reply Message
	if err := c.ws.ReadJSON(&reply); err != nil {
		return fmt.Errorf("read registration reply: %w", err)
	}
	if reply.Error != nil {
		return fmt.Errorf("register client: %w", reply.Error)
	}

	return nil
}

// Invoke sends one tool invocation and blocks until the correlated reply
// arrives or ctx expires. The context carries the tool's adaptive
// timeout; expiry abandons only this wait, never the remote work.
func (c *Client) Invoke(ctx context.Context, tool string, parameters json.RawMessage) (json.RawMessage, error) {
	id := uuid.NewString()

	ch := make(chan Message, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()
	defer c.forget(id)

	params, err := json.Marshal(InvokeParams{ToolName: tool, Parameters: parameters})
	if err != nil {
		return nil, fmt.Errorf("marshal invoke params: %w", err)
	}

	if err := c.write(Message{ID: id, Method: MethodInvokeTool, Params: params}); err != nil {
		return nil, fmt.Errorf("send invocation: %w", err)
	}

	select {
	case reply := <-ch:
		if reply.Error != nil {
			return nil, reply.Error
		}
		return reply.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClosed
	}
}

// Close shuts down the connection and unblocks all waiters.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})
	return err
}

// Start registers a shutdown hook that closes the client.
func (c *Client) Start(lc *lifecycle.Coordinator) error {
	lc.OnShutdown(func() {
		<-lc.Context().Done()
		c.logger.Info("closing transport client")
		c.Close()
	})
	return nil
}

func (c *Client) write(msg Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(msg)
}

func (c *Client) forget(id string) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

func (c *Client) readLoop() {
	for {
		var msg Message
		if err := c.ws.ReadJSON(&msg); err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Warn("router connection lost", "error", err)
				c.Close()
			}
			return
		}

		c.pendingMu.Lock()
		ch, ok := c.pending[msg.ID]
		c.pendingMu.Unlock()

		if !ok {
			// Late reply for an already-resolved id.
			c.logger.Debug("dropping late reply", "id", msg.ID)
			continue
		}

		select {
		case ch <- msg:
		default:
		}
	}
}
