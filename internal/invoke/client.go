package invoke

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/epistlelabs/epistle/internal/faults"
	"github.com/epistlelabs/epistle/internal/transport"
)

// Transport abstracts the router connection used to reach agents.
type Transport interface {
	Invoke(ctx context.Context, tool string, parameters json.RawMessage) (json.RawMessage, error)
}

// System executes tool invocations with bounded retries and adaptive
// timeouts. Implementations always return a terminal Result.
type System interface {
	Invoke(ctx context.Context, req Request) Result
}

type client struct {
	transport Transport
	policies  faults.Registry
	timeouts  faults.TimeoutTable
	sleep     func(ctx context.Context, d time.Duration) error
	logger    *slog.Logger
}

// New creates an invocation client over the given transport.
func New(
	t Transport,
	policies faults.Registry,
	timeouts faults.TimeoutTable,
	logger *slog.Logger,
) System {
	return &client{
		transport: t,
		policies:  policies,
		timeouts:  timeouts,
		sleep:     sleepContext,
		logger:    logger.With("system", "invoke"),
	}
}

// Invoke executes the request: per-tool timeout, classify on failure,
// retry per policy, and resolve to either an actual result or the
// request's fallback. The caller always receives a Result, never an error.
func (c *client) Invoke(ctx context.Context, req Request) Result {
	start := time.Now()
	timeout := c.timeouts.For(req.Tool)

	attempt := 0
	for {
		payload, err := c.attempt(ctx, req, timeout)
		if err == nil {
			c.logger.InfoContext(
				ctx, "tool invocation succeeded",
				"tool", req.Tool,
				"phase", req.Phase,
				"attempts", attempt+1,
				"elapsed", time.Since(start),
			)
			return Result{
				RequestID: req.RequestID,
				Tool:      req.Tool,
				Phase:     req.Phase,
				Outcome:   OutcomeSuccess,
				Source:    SourceActual,
				Payload:   payload,
				Attempts:  attempt + 1,
				Elapsed:   time.Since(start),
			}
		}

		attempt++
		category := classify(err)
		record := c.policies.Record(category, attempt)
		policy := c.policies.For(category)

		c.logger.WarnContext(
			ctx, "tool invocation failed",
			"tool", req.Tool,
			"phase", req.Phase,
			"category", record.Category,
			"attempt", record.Attempt,
			"retryable", record.Retryable,
			"error", err,
		)

		if !record.Retryable || attempt > policy.MaxRetries {
			return c.fallback(req, err, category, attempt, start)
		}

		if serr := c.sleep(ctx, policy.BackoffFor(attempt)); serr != nil {
			return c.fallback(req, err, category, attempt, start)
		}
	}
}

// attempt issues one request with the tool's adaptive timeout. Timeout
// expiry abandons only this wait; a late agent reply is discarded by
// request id in the transport layer.
func (c *client) attempt(ctx context.Context, req Request, timeout time.Duration) (json.RawMessage, error) {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.transport.Invoke(tctx, req.Tool, req.Parameters)
}

func (c *client) fallback(
	req Request,
	err error,
	category faults.Category,
	attempts int,
	start time.Time,
) Result {
	return Result{
		RequestID:   req.RequestID,
		Tool:        req.Tool,
		Phase:       req.Phase,
		Outcome:     OutcomeFailure,
		Source:      SourceFallback,
		Payload:     req.Fallback,
		ErrorDetail: err.Error(),
		Category:    category,
		Attempts:    attempts,
		Elapsed:     time.Since(start),
	}
}

// classify maps transport errors into the failure taxonomy. Router
// unavailability is a connection failure so the standard retry path
// applies; status-coded agent errors classify by code first.
func classify(err error) faults.Category {
	if transport.IsRouterUnavailable(err) {
		return faults.CategoryConnection
	}

	var we *transport.WireError
	if errors.As(err, &we) {
		code := we.Code
		if code >= 1000 {
			// Remaining router-range codes carry no status semantics.
			code = 0
		}
		return faults.Classify(faults.Signal{StatusCode: code, Message: we.Message})
	}

	return faults.Classify(faults.Signal{Err: err})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
