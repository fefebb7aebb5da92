package signaling

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Server relays offers, answers and ICE candidates between registered
// clients. It never looks inside payloads.
type Server struct {
	log      zerolog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*member
}

type member struct {
	id   string
	role string
	conn *websocket.Conn
	wmu  sync.Mutex
}

func (m *member) send(msg Message) error {
	m.wmu.Lock()
	defer m.wmu.Unlock()
	m.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return m.conn.WriteJSON(msg)
}

// NewServer creates an empty relay.
func NewServer(log zerolog.Logger) *Server {
	return &Server{
		log:      log.With().Str("component", "signaling").Logger(),
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:  map[string]*member{},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var reg Message
	if err := conn.ReadJSON(&reg); err != nil || reg.Type != TypeRegister || reg.ID == "" {
		conn.WriteJSON(Message{Type: TypeError, Error: "first message must register an id"})
		return
	}
	m := &member{id: reg.ID, role: reg.Role, conn: conn}
	if !s.join(m) {
		m.send(Message{Type: TypeError, Error: "id already registered"})
		return
	}
	defer s.leave(m)

	log := s.log.With().Str("id", m.id).Str("role", m.role).Logger()
	log.Info().Msg("registered")
	m.send(Message{Type: TypeRegistered, ID: m.id})
	if m.role == RoleDisplay {
		s.broadcast(RoleController, Message{Type: TypeDisplays, Displays: s.displays()})
	}

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			log.Debug().Err(err).Msg("disconnected")
			return
		}
		switch msg.Type {
		case TypeOffer, TypeAnswer, TypeICECandidate:
			s.relay(m, msg)
		case TypeListDisplays:
			m.send(Message{Type: TypeDisplays, Displays: s.displays()})
		case TypePing:
			m.send(Message{Type: TypePong, Timestamp: time.Now().UnixMilli()})
		default:
			m.send(Message{Type: TypeError, Error: "unknown message type " + msg.Type})
		}
	}
}

func (s *Server) join(m *member) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[m.id]; ok {
		return false
	}
	s.clients[m.id] = m
	return true
}

func (s *Server) leave(m *member) {
	s.mu.Lock()
	delete(s.clients, m.id)
	s.mu.Unlock()
	if m.role == RoleDisplay {
		s.broadcast(RoleController, Message{Type: TypeDisplayGone, From: m.id})
	}
}

func (s *Server) relay(from *member, msg Message) {
	s.mu.Lock()
	to := s.clients[msg.Target]
	s.mu.Unlock()
	if to == nil {
		from.send(Message{Type: TypeError, Error: "unknown target " + msg.Target})
		return
	}
	msg.From = from.id
	msg.Target = ""
	if err := to.send(msg); err != nil {
		s.log.Debug().Err(err).Str("to", to.id).Msg("relay")
	}
}

func (s *Server) displays() []DisplayInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []DisplayInfo
	for id, m := range s.clients {
		if m.role == RoleDisplay {
			out = append(out, DisplayInfo{ID: id})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) broadcast(role string, msg Message) {
	s.mu.Lock()
	var targets []*member
	for _, m := range s.clients {
		if m.role == role {
			targets = append(targets, m)
		}
	}
	s.mu.Unlock()
	for _, m := range targets {
		m.send(msg)
	}
}
