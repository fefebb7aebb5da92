package transport

import (
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
)

// DataChannelConn carries messages over a WebRTC DataChannel.
type DataChannelConn struct {
	dc *webrtc.DataChannel

	mu        sync.Mutex
	onMessage func(data []byte)

	open      chan struct{}
	openOnce  sync.Once
	done      chan struct{}
	closeOnce sync.Once
}

// NewDataChannelConn wraps dc. It must be called before dc opens so no
// message is missed.
func NewDataChannelConn(dc *webrtc.DataChannel) *DataChannelConn {
	t := &DataChannelConn{
		dc:   dc,
		open: make(chan struct{}),
		done: make(chan struct{}),
	}
	dc.OnOpen(func() {
		t.openOnce.Do(func() { close(t.open) })
	})
	dc.OnClose(func() {
		t.closeOnce.Do(func() { close(t.done) })
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		t.mu.Lock()
		cb := t.onMessage
		t.mu.Unlock()
		if cb != nil {
			cb(msg.Data)
		}
	})
	if dc.ReadyState() == webrtc.DataChannelStateOpen {
		t.openOnce.Do(func() { close(t.open) })
	}
	return t
}

func (t *DataChannelConn) Send(data []byte) error {
	select {
	case <-t.open:
	default:
		return fmt.Errorf("data channel %q not open", t.dc.Label())
	}
	return t.dc.Send(data)
}

func (t *DataChannelConn) OnMessage(cb func(data []byte)) {
	t.mu.Lock()
	t.onMessage = cb
	t.mu.Unlock()
}

// Opened is closed once the channel can carry messages.
func (t *DataChannelConn) Opened() <-chan struct{} { return t.open }

func (t *DataChannelConn) Done() <-chan struct{} { return t.done }

func (t *DataChannelConn) Close() error {
	err := t.dc.Close()
	t.closeOnce.Do(func() { close(t.done) })
	return err
}
