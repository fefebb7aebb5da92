package peer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/junsooki/AirSLM/internal/rpc"
	"github.com/junsooki/AirSLM/internal/signaling"
	"github.com/junsooki/AirSLM/internal/transport"
)

// Controller is the controller side of the WebRTC control path.
type Controller struct {
	pc        *webrtc.PeerConnection
	sig       *signaling.Client
	conn      *transport.DataChannelConn
	displayID string
	log       zerolog.Logger

	// Candidates can arrive before the answer; they wait here until then.
	mu       sync.Mutex
	answered bool
	early    []webrtc.ICECandidateInit
}

// NewController prepares a PeerConnection with an ordered commands channel.
func NewController(displayID string, log zerolog.Logger) (*Controller, error) {
	pc, err := NewPeerConnection(log)
	if err != nil {
		return nil, err
	}
	ordered := true
	dc, err := pc.CreateDataChannel(CommandsLabel, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		pc.Close()
		return nil, err
	}
	return &Controller{
		pc:        pc,
		conn:      transport.NewDataChannelConn(dc),
		displayID: displayID,
		log:       log,
	}, nil
}

// Handler returns the signaling callbacks for a controller registration.
func (c *Controller) Handler() signaling.Handler {
	return signaling.Handler{
		OnAnswer: func(from string, payload json.RawMessage) {
			if err := c.HandleAnswer(payload); err != nil {
				c.log.Warn().Err(err).Msg("handle answer")
			}
		},
		OnICECandidate: func(from string, payload json.RawMessage) {
			if err := c.HandleICECandidate(payload); err != nil {
				c.log.Warn().Err(err).Msg("handle ICE candidate")
			}
		},
		OnError: func(msg string) {
			c.log.Warn().Str("error", msg).Msg("signaling error")
		},
	}
}

// Connect sends an offer through sig and waits for the commands channel to
// open. The returned client speaks the regular RPC protocol.
func (c *Controller) Connect(ctx context.Context, sig *signaling.Client) (*rpc.Client, error) {
	c.sig = sig
	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			return
		}
		data, err := json.Marshal(cand.ToJSON())
		if err != nil {
			c.log.Warn().Err(err).Msg("marshal ICE candidate")
			return
		}
		_ = sig.SendICECandidate(c.displayID, data)
	})

	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return nil, err
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return nil, err
	}
	offerJSON, err := json.Marshal(offer)
	if err != nil {
		return nil, err
	}
	if err := sig.SendOffer(c.displayID, offerJSON); err != nil {
		return nil, err
	}

	select {
	case <-c.conn.Opened():
		return rpc.NewClient(c.conn), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for commands channel: %w", ctx.Err())
	}
}

// HandleAnswer processes an incoming SDP answer.
func (c *Controller) HandleAnswer(payload json.RawMessage) error {
	var answer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &answer); err != nil {
		return err
	}
	if err := c.pc.SetRemoteDescription(answer); err != nil {
		return err
	}
	c.mu.Lock()
	c.answered = true
	early := c.early
	c.early = nil
	c.mu.Unlock()
	for _, cand := range early {
		if err := c.pc.AddICECandidate(cand); err != nil {
			c.log.Warn().Err(err).Msg("add early ICE candidate")
		}
	}
	return nil
}

// HandleICECandidate adds a remote ICE candidate.
func (c *Controller) HandleICECandidate(payload json.RawMessage) error {
	var candidate webrtc.ICECandidateInit
	if err := json.Unmarshal(payload, &candidate); err != nil {
		return err
	}
	c.mu.Lock()
	if !c.answered {
		c.early = append(c.early, candidate)
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	return c.pc.AddICECandidate(candidate)
}

// Close shuts down the peer connection.
func (c *Controller) Close() {
	if c.pc != nil {
		c.pc.Close()
	}
}
