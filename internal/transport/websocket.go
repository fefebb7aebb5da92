package transport

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// WebSocketConn carries messages as websocket text frames.
type WebSocketConn struct {
	conn *websocket.Conn

	wmu       sync.Mutex
	mu        sync.Mutex
	onMessage func(data []byte)

	done      chan struct{}
	closeOnce sync.Once
}

// NewWebSocketConn wraps an established websocket. Call Serve to start reading.
func NewWebSocketConn(conn *websocket.Conn) *WebSocketConn {
	return &WebSocketConn{conn: conn, done: make(chan struct{})}
}

func (t *WebSocketConn) Send(data []byte) error {
	t.wmu.Lock()
	defer t.wmu.Unlock()
	select {
	case <-t.done:
		return fmt.Errorf("websocket closed")
	default:
	}
	t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *WebSocketConn) OnMessage(cb func(data []byte)) {
	t.mu.Lock()
	t.onMessage = cb
	t.mu.Unlock()
}

// Serve reads messages until the connection fails or is closed. Each
// message is handled before the next one is read.
func (t *WebSocketConn) Serve() error {
	defer t.Close()
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			select {
			case <-t.done:
				return nil
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("websocket read: %w", err)
		}
		t.mu.Lock()
		cb := t.onMessage
		t.mu.Unlock()
		if cb != nil {
			cb(data)
		}
	}
}

// Close drops the connection immediately.
func (t *WebSocketConn) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		err = t.conn.Close()
	})
	return err
}

func (t *WebSocketConn) Done() <-chan struct{} { return t.done }

// SetReadLimit bounds the size of a single incoming message.
func (t *WebSocketConn) SetReadLimit(n int64) {
	t.conn.SetReadLimit(n)
}
