package rpc

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/junsooki/AirSLM/internal/transport"
)

// Path is the websocket endpoint of the SLM service.
const Path = "/slm"

// DefaultMaxMessageBytes fits a base64-encoded 4K complex128 phase mask.
const DefaultMaxMessageBytes = 1 << 30

// Attach answers requests arriving on conn. Requests on one connection are
// handled one at a time, in the order they arrive.
func Attach(svc Service, conn transport.Conn, log zerolog.Logger) {
	conn.OnMessage(func(data []byte) {
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warn().Err(err).Msg("unmarshal rpc message")
			return
		}
		reply, ok := Handle(svc, msg)
		if !ok {
			return
		}
		out, err := json.Marshal(reply)
		if err != nil {
			log.Error().Err(err).Str("method", msg.Method).Msg("marshal rpc reply")
			return
		}
		if err := conn.Send(out); err != nil {
			log.Debug().Err(err).Str("method", msg.Method).Msg("send rpc reply")
		}
	})
}

// Server serves the SLM service over websockets.
type Server struct {
	svc             Service
	log             zerolog.Logger
	upgrader        websocket.Upgrader
	MaxMessageBytes int64

	mu     sync.Mutex
	conns  map[*transport.WebSocketConn]struct{}
	srv    *http.Server
	closed bool
}

// NewServer creates a server for svc.
func NewServer(svc Service, log zerolog.Logger) *Server {
	return &Server{
		svc:             svc,
		log:             log.With().Str("component", "rpc").Logger(),
		upgrader:        websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		MaxMessageBytes: DefaultMaxMessageBytes,
		conns:           map[*transport.WebSocketConn]struct{}{},
	}
}

// Handler returns the HTTP handler exposing the service at Path.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(Path, s)
	return mux
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("websocket upgrade")
		return
	}
	conn := transport.NewWebSocketConn(ws)
	conn.SetReadLimit(s.MaxMessageBytes)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	log := s.log.With().Str("remote", r.RemoteAddr).Logger()
	log.Debug().Msg("client connected")
	Attach(s.svc, conn, log)
	if err := conn.Serve(); err != nil {
		log.Debug().Err(err).Msg("client connection ended")
	}

	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// ListenAndServe listens on addr and serves until Close.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Close.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return http.ErrServerClosed
	}
	s.srv = &http.Server{Handler: s.Handler()}
	srv := s.srv
	s.mu.Unlock()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("rpc server listening")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close stops the server with no grace period: the listener and every open
// connection are closed and in-flight requests are abandoned.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	var err error
	if s.srv != nil {
		err = s.srv.Close()
	}
	for c := range s.conns {
		c.Close()
	}
	s.log.Info().Msg("rpc server stopped")
	return err
}
