package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WS connects to a downstream over a WebSocket, carrying JSON-RPC frames
// as text messages.
type WS struct {
	URL     string
	Headers map[string]string

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// Open performs the WebSocket handshake, including any configured headers.
func (t *WS) Open(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return NewError(HandshakeFailed, errors.New("already open"))
	}

	header := http.Header{}
	for k, v := range t.Headers {
		header.Set(k, v)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 30 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, t.URL, header)
	if resp != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if err != nil {
		if resp != nil && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
			return NewError(HandshakeFailed, err)
		}
		return NewError(ConnectRefused, err)
	}

	t.conn = conn
	return nil
}

// Send writes the frame as a text message.
func (t *WS) Send(ctx context.Context, frame []byte) error {
	t.mu.Lock()
	conn := t.conn
	closed := t.closed
	t.mu.Unlock()

	if closed || conn == nil {
		return NewError(Closed, errors.New("ws transport not open"))
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return NewError(Io, err)
	}
	return nil
}

// Receive reads the next text or binary message, skipping any other kind.
func (t *WS) Receive(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	conn := t.conn
	closed := t.closed
	t.mu.Unlock()

	if closed || conn == nil {
		return nil, NewError(Closed, errors.New("ws transport not open"))
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, io.EOF
			}
			return nil, NewError(Io, err)
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		return data, nil
	}
}

// Close sends a close frame and closes the underlying connection. Idempotent.
func (t *WS) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	if t.conn == nil {
		return nil
	}
	deadline := time.Now().Add(time.Second)
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return t.conn.Close()
}
