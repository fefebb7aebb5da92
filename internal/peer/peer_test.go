package peer

import (
	"encoding/json"
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junsooki/AirSLM/internal/bridge"
	"github.com/junsooki/AirSLM/internal/display"
)

func init() {
	ICEServers = nil
}

func TestControllerBuffersEarlyCandidates(t *testing.T) {
	c, err := NewController("slm", zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	cand, err := json.Marshal(webrtc.ICECandidateInit{Candidate: "candidate:1 1 udp 2130706431 192.0.2.1 5000 typ host"})
	require.NoError(t, err)
	require.NoError(t, c.HandleICECandidate(cand))
	assert.Len(t, c.early, 1)
	assert.False(t, c.answered)

	assert.Error(t, c.HandleAnswer(json.RawMessage(`not json`)))
	assert.False(t, c.answered)
}

func TestHostIgnoresCandidatesFromStrangers(t *testing.T) {
	b := bridge.New(nil, display.NewHeadlessBackend(nil), zerolog.Nop())
	h := NewHost(b, zerolog.Nop())
	defer h.Close()

	cand, err := json.Marshal(webrtc.ICECandidateInit{Candidate: "candidate:1 1 udp 1 192.0.2.1 5000 typ host"})
	require.NoError(t, err)
	assert.NoError(t, h.HandleICECandidate("stranger", cand))
	assert.Error(t, h.HandleOffer("ctl", json.RawMessage(`{`)))
}

func TestHostForgetsDeadConnections(t *testing.T) {
	h := NewHost(bridge.New(nil, display.NewHeadlessBackend(nil), zerolog.Nop()), zerolog.Nop())
	defer h.Close()

	first, err := NewPeerConnection(zerolog.Nop())
	require.NoError(t, err)
	second, err := NewPeerConnection(zerolog.Nop())
	require.NoError(t, err)
	defer first.Close()
	defer second.Close()

	h.mu.Lock()
	h.peers["ctl"] = second
	h.peers["other"] = first
	h.mu.Unlock()

	h.connectionState("ctl", first, webrtc.PeerConnectionStateFailed)
	assert.Equal(t, 2, h.Peers(), "a replaced connection must not evict its successor")

	h.connectionState("ctl", second, webrtc.PeerConnectionStateConnected)
	assert.Equal(t, 2, h.Peers())

	h.connectionState("ctl", second, webrtc.PeerConnectionStateFailed)
	assert.Equal(t, 1, h.Peers())

	h.connectionState("other", first, webrtc.PeerConnectionStateClosed)
	assert.Equal(t, 0, h.Peers())
}
