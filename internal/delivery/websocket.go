// Package delivery sends pipeline payloads to connected clients.
package delivery

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/voxloom/speech-gateway/internal/observability"
	"github.com/voxloom/speech-gateway/internal/pipeline"
)

// WebSocketSink writes payloads as JSON text frames over one WebSocket
// connection. A mutex serializes writers since the underlying connection
// allows only one concurrent writer.
type WebSocketSink struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed bool
	logger zerolog.Logger
}

// NewWebSocketSink wraps an established connection
func NewWebSocketSink(conn *websocket.Conn) *WebSocketSink {
	return &WebSocketSink{
		conn:   conn,
		logger: observability.WithComponent("delivery"),
	}
}

// Send writes one payload to the client. A context deadline, when present,
// bounds the write.
func (s *WebSocketSink) Send(ctx context.Context, payload *pipeline.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("sink is closed")
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetWriteDeadline(deadline)
	}
	if err := s.conn.WriteJSON(payload); err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}
	return nil
}

// SendMessage writes an arbitrary JSON message outside the ordered payload
// stream, used for control acknowledgements and errors.
func (s *WebSocketSink) SendMessage(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("sink is closed")
	}
	return s.conn.WriteJSON(v)
}

// Close marks the sink closed. The connection itself belongs to the session
// and is closed there.
func (s *WebSocketSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
