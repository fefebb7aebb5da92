package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/junsooki/AirSLM/internal/transport"
)

// Client calls the SLM service over any transport.Conn.
type Client struct {
	conn transport.Conn

	mu      sync.Mutex
	pending map[string]chan Message
}

// NewClient wraps conn. The caller is responsible for starting conn's read
// side, if it has one.
func NewClient(conn transport.Conn) *Client {
	c := &Client{conn: conn, pending: map[string]chan Message{}}
	conn.OnMessage(c.dispatch)
	return c
}

// Dial connects to a server URL such as ws://localhost:50051/slm.
func Dial(ctx context.Context, url string) (*Client, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("rpc dial: %w", err)
	}
	conn := transport.NewWebSocketConn(ws)
	conn.SetReadLimit(DefaultMaxMessageBytes)
	c := NewClient(conn)
	go conn.Serve()
	return c, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// KeepAlive pings the server every interval until ctx is done or the
// connection closes.
func (c *Client) KeepAlive(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.conn.Done():
			return
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, interval)
			_ = c.Ping(pctx)
			cancel()
		}
	}
}

// Ping round-trips a heartbeat.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.roundTrip(ctx, Message{Type: TypePing})
	return err
}

func (c *Client) SetImage(ctx context.Context, data []byte, width, height int) (Response, error) {
	return c.set(ctx, MethodSetImage, ImageRequest{ImageBytes: data, Width: width, Height: height})
}

// SetImageRGB sends interleaved RGB triplets.
func (c *Client) SetImageRGB(ctx context.Context, data []byte, width, height int) (Response, error) {
	return c.set(ctx, MethodSetImage, ImageRequest{ImageBytes: data, Width: width, Height: height, RGB: true})
}

// SetImageColour sends one plane per colour channel.
func (c *Client) SetImageColour(ctx context.Context, planes [][]byte, width, height int) (Response, error) {
	return c.set(ctx, MethodSetImageColour, ColourImageRequest{Planes: planes, Width: width, Height: height})
}

func (c *Client) SetPhaseMask(ctx context.Context, data []byte, width, height int) (Response, error) {
	return c.set(ctx, MethodSetPhaseMask, PhaseMaskRequest{Phasemask: data, Width: width, Height: height})
}

func (c *Client) SetLUT(ctx context.Context, data []byte) (Response, error) {
	return c.set(ctx, MethodSetLUT, LUTRequest{LUT: data})
}

func (c *Client) SetScreen(ctx context.Context, screen int) (Response, error) {
	return c.set(ctx, MethodSetScreen, ScreenRequest{Screen: screen})
}

func (c *Client) SetPosition(ctx context.Context, x, y int) (Response, error) {
	return c.set(ctx, MethodSetPosition, PositionRequest{X: x, Y: y})
}

func (c *Client) GetNumScreens(ctx context.Context) (int, error) {
	var reply ScreenReply
	if err := c.call(ctx, MethodGetNumScreens, struct{}{}, &reply); err != nil {
		return 0, err
	}
	return reply.Count, nil
}

func (c *Client) GetPosition(ctx context.Context) (x, y int, err error) {
	var reply PositionReply
	if err := c.call(ctx, MethodGetPosition, struct{}{}, &reply); err != nil {
		return 0, 0, err
	}
	return reply.X, reply.Y, nil
}

func (c *Client) set(ctx context.Context, method string, req any) (Response, error) {
	var resp Response
	err := c.call(ctx, method, req, &resp)
	return resp, err
}

func (c *Client) call(ctx context.Context, method string, req, reply any) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}
	msg, err := c.roundTrip(ctx, Message{Type: TypeRequest, Method: method, Payload: payload})
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if err := json.Unmarshal(msg.Payload, reply); err != nil {
		return fmt.Errorf("decode %s reply: %w", method, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, msg Message) (Message, error) {
	msg.ID = uuid.NewString()
	ch := make(chan Message, 1)
	c.mu.Lock()
	c.pending[msg.ID] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, msg.ID)
		c.mu.Unlock()
	}()

	data, err := json.Marshal(msg)
	if err != nil {
		return Message{}, err
	}
	if err := c.conn.Send(data); err != nil {
		return Message{}, err
	}

	select {
	case reply := <-ch:
		return reply, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case <-c.conn.Done():
		return Message{}, fmt.Errorf("connection closed")
	}
}

func (c *Client) dispatch(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if msg.Type != TypeResponse && msg.Type != TypePong {
		return
	}
	c.mu.Lock()
	ch := c.pending[msg.ID]
	c.mu.Unlock()
	if ch != nil {
		ch <- msg
	}
}
