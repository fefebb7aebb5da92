package transport

// Sender sends one serialized RPC message.
type Sender interface {
	Send(data []byte) error
}

// Receiver delivers serialized RPC messages, one at a time and in order.
type Receiver interface {
	OnMessage(callback func(data []byte))
}

// Conn is a message-oriented, bidirectional connection.
type Conn interface {
	Sender
	Receiver
	Close() error
	// Done is closed once the connection can no longer deliver messages.
	Done() <-chan struct{}
}
