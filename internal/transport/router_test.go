package transport_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/epistlelabs/epistle/internal/transport"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startRouter(t *testing.T) string {
	t.Helper()

	router := transport.NewRouter(testLogger())
	mux := http.NewServeMux()
	mux.Handle("/ws", router.Handler())

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return strings.Replace(server.URL, "http", "ws", 1) + "/ws"
}

func startAgent(t *testing.T, url string, tools map[string]transport.ToolFunc) {
	t.Helper()

	agent := transport.NewAgent("test-agent", testLogger())
	for name, fn := range tools {
		agent.Handle(name, fn)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = agent.Run(ctx, url)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	})

	// Give the agent a moment to complete registration.
	time.Sleep(100 * time.Millisecond)
}

func echoTool(_ context.Context, parameters json.RawMessage) (json.RawMessage, error) {
	return json.Marshal(map[string]any{"echo": string(parameters)})
}

func TestRouterInvokeRoundTrip(t *testing.T) {
	url := startRouter(t)
	startAgent(t, url, map[string]transport.ToolFunc{"echo": echoTool})

	client, err := transport.Dial(context.Background(), url, "test-client", testLogger())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := client.Invoke(ctx, "echo", json.RawMessage(`{"ping":true}`))
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	var payload map[string]string
	if err := json.Unmarshal(result, &payload); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if payload["echo"] != `{"ping":true}` {
		t.Errorf("echo = %q", payload["echo"])
	}
}

func TestRouterNoAgentForTool(t *testing.T) {
	url := startRouter(t)

	client, err := transport.Dial(context.Background(), url, "test-client", testLogger())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = client.Invoke(ctx, "nonexistent", nil)
	if err == nil {
		t.Fatal("Invoke() error = nil for unserved tool")
	}

	var we *transport.WireError
	if !errors.As(err, &we) {
		t.Fatalf("Invoke() error = %v, want WireError", err)
	}
	if we.Code != transport.CodeNoAgent {
		t.Errorf("Code = %d, want %d", we.Code, transport.CodeNoAgent)
	}
	if !transport.IsRouterUnavailable(err) {
		t.Error("IsRouterUnavailable() = false")
	}
}

func TestRouterAgentToolError(t *testing.T) {
	url := startRouter(t)
	startAgent(t, url, map[string]transport.ToolFunc{
		"failing": func(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
			return nil, &transport.ToolError{Code: 422, Message: "invalid payload shape"}
		},
	})

	client, err := transport.Dial(context.Background(), url, "test-client", testLogger())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = client.Invoke(ctx, "failing", nil)
	if err == nil {
		t.Fatal("Invoke() error = nil for failing tool")
	}

	var we *transport.WireError
	if !errors.As(err, &we) {
		t.Fatalf("Invoke() error = %v, want WireError", err)
	}
	if we.Code != 422 {
		t.Errorf("Code = %d, want 422", we.Code)
	}
	if transport.IsRouterUnavailable(err) {
		t.Error("IsRouterUnavailable() = true for status-coded tool error")
	}
}

func TestClientInvokeContextTimeout(t *testing.T) {
	url := startRouter(t)
	startAgent(t, url, map[string]transport.ToolFunc{
		"slow": func(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) {
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
			}
			return json.RawMessage(`{}`), nil
		},
	})

	client, err := transport.Dial(context.Background(), url, "test-client", testLogger())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = client.Invoke(ctx, "slow", nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Invoke() error = %v, want deadline exceeded", err)
	}
}

func TestClientConcurrentInvocations(t *testing.T) {
	url := startRouter(t)
	startAgent(t, url, map[string]transport.ToolFunc{"echo": echoTool})

	client, err := transport.Dial(context.Background(), url, "test-client", testLogger())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	errs := make(chan error, 8)
	for i := range 8 {
		go func(n int) {
			params, _ := json.Marshal(map[string]int{"n": n})
			_, err := client.Invoke(ctx, "echo", params)
			errs <- err
		}(i)
	}

	for range 8 {
		if err := <-errs; err != nil {
			t.Errorf("Invoke() error = %v", err)
		}
	}
}
