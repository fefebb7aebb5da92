package peer

import (
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// CommandsLabel names the data channel that carries RPC messages.
const CommandsLabel = "commands"

// ICEServers is the default ICE server configuration.
var ICEServers = []webrtc.ICEServer{
	{URLs: []string{"stun:stun.l.google.com:19302", "stun:stun1.l.google.com:19302"}},
}

// NewPeerConnection creates a configured PeerConnection.
func NewPeerConnection(log zerolog.Logger) (*webrtc.PeerConnection, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: ICEServers})
	if err != nil {
		return nil, err
	}
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Info().Str("state", state.String()).Msg("peer connection state")
	})
	return pc, nil
}
