package signaling

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Handler callbacks for incoming signaling messages. Callbacks run on the
// client's read goroutine, one at a time.
type Handler struct {
	OnRegistered   func()
	OnOffer        func(from string, payload json.RawMessage)
	OnAnswer       func(from string, payload json.RawMessage)
	OnICECandidate func(from string, payload json.RawMessage)
	OnDisplays     func(displays []DisplayInfo)
	OnDisplayGone  func(id string)
	OnError        func(msg string)
}

// Client is a WebSocket signaling client.
type Client struct {
	url     string
	id      string
	role    string
	handler Handler

	conn   *websocket.Conn
	mu     sync.Mutex
	done   chan struct{}
	closed bool
}

// NewClient creates a signaling client.
func NewClient(url, id, role string, handler Handler) *Client {
	return &Client{
		url:     url,
		id:      id,
		role:    role,
		handler: handler,
		done:    make(chan struct{}),
	}
}

// ID returns the id this client registers under.
func (c *Client) ID() string { return c.id }

// Connect dials the signaling server and starts reading messages.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("signaling dial: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	if err := c.send(Message{Type: TypeRegister, ID: c.id, Role: c.role}); err != nil {
		conn.Close()
		return fmt.Errorf("signaling register: %w", err)
	}

	go c.readLoop()
	go c.pingLoop()
	return nil
}

// Done is closed when the connection to the server is gone.
func (c *Client) Done() <-chan struct{} { return c.done }

// Close shuts down the connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	if c.conn != nil {
		c.conn.Close()
	}
}

// SendOffer sends an SDP offer to target.
func (c *Client) SendOffer(target string, payload json.RawMessage) error {
	return c.send(Message{Type: TypeOffer, Target: target, Payload: payload})
}

// SendAnswer sends an SDP answer to target.
func (c *Client) SendAnswer(target string, payload json.RawMessage) error {
	return c.send(Message{Type: TypeAnswer, Target: target, Payload: payload})
}

// SendICECandidate sends an ICE candidate to target.
func (c *Client) SendICECandidate(target string, payload json.RawMessage) error {
	return c.send(Message{Type: TypeICECandidate, Target: target, Payload: payload})
}

// ListDisplays asks the server for registered display processes. The
// answer arrives through Handler.OnDisplays.
func (c *Client) ListDisplays() error {
	return c.send(Message{Type: TypeListDisplays})
}

func (c *Client) send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.closed {
		return fmt.Errorf("not connected")
	}
	return c.conn.WriteJSON(msg)
}

func (c *Client) readLoop() {
	defer c.Close()
	for {
		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			select {
			case <-c.done:
			default:
				log.Warn().Err(err).Str("id", c.id).Msg("signaling read")
			}
			return
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg Message) {
	h := c.handler
	switch {
	case msg.Type == TypeRegistered && h.OnRegistered != nil:
		h.OnRegistered()
	case msg.Type == TypeOffer && h.OnOffer != nil:
		h.OnOffer(msg.From, msg.Payload)
	case msg.Type == TypeAnswer && h.OnAnswer != nil:
		h.OnAnswer(msg.From, msg.Payload)
	case msg.Type == TypeICECandidate && h.OnICECandidate != nil:
		h.OnICECandidate(msg.From, msg.Payload)
	case msg.Type == TypeDisplays && h.OnDisplays != nil:
		h.OnDisplays(msg.Displays)
	case msg.Type == TypeDisplayGone && h.OnDisplayGone != nil:
		h.OnDisplayGone(msg.From)
	case msg.Type == TypeError && h.OnError != nil:
		h.OnError(msg.Error)
	}
}

func (c *Client) pingLoop() {
	ticker := time.NewTicker(25 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			_ = c.send(Message{Type: TypePing, Timestamp: time.Now().UnixMilli()})
		}
	}
}
