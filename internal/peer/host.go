package peer

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/junsooki/AirSLM/internal/rpc"
	"github.com/junsooki/AirSLM/internal/signaling"
	"github.com/junsooki/AirSLM/internal/transport"
)

// Host answers controllers that reach the display process through the
// signaling server. Each controller gets its own PeerConnection; requests
// on its commands channel go to the same service as websocket clients.
type Host struct {
	svc rpc.Service
	log zerolog.Logger
	sig *signaling.Client

	mu    sync.Mutex
	peers map[string]*webrtc.PeerConnection
}

// NewHost creates a Host serving svc.
func NewHost(svc rpc.Service, log zerolog.Logger) *Host {
	return &Host{
		svc:   svc,
		log:   log.With().Str("component", "peer").Logger(),
		peers: map[string]*webrtc.PeerConnection{},
	}
}

// Handler returns the signaling callbacks for a display registration.
func (h *Host) Handler() signaling.Handler {
	return signaling.Handler{
		OnRegistered: func() {
			h.log.Info().Msg("registered with signaling server")
		},
		OnOffer: func(from string, payload json.RawMessage) {
			if err := h.HandleOffer(from, payload); err != nil {
				h.log.Warn().Err(err).Str("controller", from).Msg("handle offer")
			}
		},
		OnICECandidate: func(from string, payload json.RawMessage) {
			if err := h.HandleICECandidate(from, payload); err != nil {
				h.log.Warn().Err(err).Str("controller", from).Msg("handle ICE candidate")
			}
		},
		OnError: func(msg string) {
			h.log.Warn().Str("error", msg).Msg("signaling error")
		},
	}
}

// Bind sets the signaling client used to answer. Call before Connect.
func (h *Host) Bind(sig *signaling.Client) {
	h.mu.Lock()
	h.sig = sig
	h.mu.Unlock()
}

func (h *Host) signaler() *signaling.Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sig
}

// HandleOffer answers an offer from a controller, replacing any earlier
// connection from the same controller.
func (h *Host) HandleOffer(from string, payload json.RawMessage) error {
	var offer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &offer); err != nil {
		return err
	}

	log := h.log.With().Str("controller", from).Logger()
	pc, err := NewPeerConnection(log)
	if err != nil {
		return err
	}
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != CommandsLabel {
			log.Debug().Str("label", dc.Label()).Msg("ignoring data channel")
			return
		}
		conn := transport.NewDataChannelConn(dc)
		rpc.Attach(h.svc, conn, log)
		log.Info().Msg("commands channel attached")
	})
	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		data, err := json.Marshal(c.ToJSON())
		if err != nil {
			log.Warn().Err(err).Msg("marshal ICE candidate")
			return
		}
		if sig := h.signaler(); sig != nil {
			_ = sig.SendICECandidate(from, data)
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Debug().Stringer("state", state).Msg("peer connection state")
		h.connectionState(from, pc, state)
	})

	h.mu.Lock()
	old := h.peers[from]
	h.peers[from] = pc
	h.mu.Unlock()
	if old != nil {
		old.Close()
	}

	if err := pc.SetRemoteDescription(offer); err != nil {
		return err
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return err
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		return err
	}
	answerJSON, err := json.Marshal(answer)
	if err != nil {
		return err
	}
	sig := h.signaler()
	if sig == nil {
		return fmt.Errorf("no signaling connection")
	}
	return sig.SendAnswer(from, answerJSON)
}

// HandleICECandidate adds a remote ICE candidate for a controller.
func (h *Host) HandleICECandidate(from string, payload json.RawMessage) error {
	var candidate webrtc.ICECandidateInit
	if err := json.Unmarshal(payload, &candidate); err != nil {
		return err
	}
	h.mu.Lock()
	pc := h.peers[from]
	h.mu.Unlock()
	if pc == nil {
		return nil
	}
	return pc.AddICECandidate(candidate)
}

// connectionState drops pc once it can no longer carry commands. A newer
// connection from the same controller is left alone.
func (h *Host) connectionState(from string, pc *webrtc.PeerConnection, state webrtc.PeerConnectionState) {
	switch state {
	case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
	default:
		return
	}
	h.mu.Lock()
	current := h.peers[from] == pc
	if current {
		delete(h.peers, from)
	}
	h.mu.Unlock()
	if current {
		h.log.Info().Str("controller", from).Stringer("state", state).Msg("controller disconnected")
		if state == webrtc.PeerConnectionStateFailed {
			pc.Close()
		}
	}
}

// Peers returns the number of controllers with a live connection.
func (h *Host) Peers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

// Close shuts down every peer connection.
func (h *Host) Close() {
	h.mu.Lock()
	peers := h.peers
	h.peers = map[string]*webrtc.PeerConnection{}
	h.mu.Unlock()
	for _, pc := range peers {
		pc.Close()
	}
}
