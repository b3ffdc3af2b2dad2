// Package rpcclient implements a JSON-RPC 2.0 client over a transport.Transport:
// request/response correlation by numeric id, a background demultiplexer,
// and per-call timeouts.
package rpcclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/distrihub/mcp-proxy/internal/transport"
)

// ErrTimedOut is returned by Request when the deadline elapses before a
// matching response arrives. The pending waiter is discarded; the client
// continues to operate normally for subsequent calls.
var ErrTimedOut = errors.New("rpcclient: request timed out")

// ErrSessionClosed is returned to every outstanding and future waiter once
// the demultiplexer exits (the transport was closed or hit an unrecoverable
// read error).
var ErrSessionClosed = errors.New("rpcclient: session closed")

type envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type waiter struct {
	resultCh chan result
}

type result struct {
	value json.RawMessage
	err   error
}

// Client is a JSON-RPC client bound to one downstream Transport.
type Client struct {
	transport transport.Transport
	logger    *slog.Logger

	nextID int64

	mu      sync.Mutex
	waiters map[int64]*waiter
	closed  bool
}

// New wraps t in a Client. Start must be called once to launch the
// background demultiplexer before Request is used.
func New(t transport.Transport, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		transport: t,
		logger:    logger,
		waiters:   make(map[int64]*waiter),
	}
}

// Start launches the background demultiplexer as a goroutine. Must be
// called exactly once, after the transport has been opened successfully.
func (c *Client) Start() {
	go c.demux()
}

// Request issues method/params as a JSON-RPC request, allocating a fresh
// monotonically increasing id, and waits up to timeout for the matching
// response.
func (c *Client) Request(ctx context.Context, method string, params json.RawMessage, timeout time.Duration) (json.RawMessage, error) {
	id := atomic.AddInt64(&c.nextID, 1)

	w := &waiter{resultCh: make(chan result, 1)}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrSessionClosed
	}
	c.waiters[id] = w
	c.mu.Unlock()

	frame, err := json.Marshal(envelope{
		JSONRPC: "2.0",
		ID:      &id,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		c.removeWaiter(id)
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	if err := c.transport.Send(ctx, frame); err != nil {
		c.removeWaiter(id)
		return nil, fmt.Errorf("send request: %w", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-w.resultCh:
		return res.value, res.err
	case <-timer.C:
		c.removeWaiter(id)
		return nil, ErrTimedOut
	case <-ctx.Done():
		c.removeWaiter(id)
		return nil, ctx.Err()
	}
}

// Close closes the underlying transport. The demultiplexer observes the
// resulting Receive error and wakes any outstanding waiters.
func (c *Client) Close() error {
	return c.transport.Close()
}

func (c *Client) removeWaiter(id int64) {
	c.mu.Lock()
	delete(c.waiters, id)
	c.mu.Unlock()
}

// demux pulls frames off the transport and routes responses to their
// waiter by id. Unsolicited notifications (no id, or an id with no
// matching waiter) are logged and discarded. On any Receive error --
// including clean EOF -- every outstanding waiter is woken with
// ErrSessionClosed and the loop exits.
func (c *Client) demux() {
	ctx := context.Background()
	for {
		frame, err := c.transport.Receive(ctx)
		if err != nil {
			c.shutdown()
			return
		}

		var env envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			c.logger.Warn("rpcclient: discarding malformed frame", "error", err)
			continue
		}

		if env.ID == nil {
			c.logger.Debug("rpcclient: discarding notification", "method", env.Method)
			continue
		}

		c.mu.Lock()
		w, ok := c.waiters[*env.ID]
		if ok {
			delete(c.waiters, *env.ID)
		}
		c.mu.Unlock()

		if !ok {
			c.logger.Debug("rpcclient: response for unknown or expired id", "id", *env.ID)
			continue
		}

		if env.Error != nil {
			w.resultCh <- result{err: env.Error}
		} else {
			w.resultCh <- result{value: env.Result}
		}
	}
}

func (c *Client) shutdown() {
	c.mu.Lock()
	c.closed = true
	waiters := c.waiters
	c.waiters = make(map[int64]*waiter)
	c.mu.Unlock()

	for _, w := range waiters {
		w.resultCh <- result{err: ErrSessionClosed}
	}
}
