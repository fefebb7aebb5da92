package signaling

import "encoding/json"

// Message types. A display registers, a controller lists displays and
// then exchanges SDP and ICE candidates with one of them through the server.
const (
	TypeRegister     = "register"
	TypeRegistered   = "registered"
	TypeListDisplays = "list-displays"
	TypeDisplays     = "displays"
	TypeDisplayGone  = "display-gone"
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "ice-candidate"
	TypePing         = "ping"
	TypePong         = "pong"
	TypeError        = "error"
)

// Roles a client registers as.
const (
	RoleDisplay    = "display"
	RoleController = "controller"
)

// Message is the envelope for all signaling messages. From is filled in by
// the server; clients address peers with Target.
type Message struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Role      string          `json:"role,omitempty"`
	From      string          `json:"from,omitempty"`
	Target    string          `json:"target,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Displays  []DisplayInfo   `json:"displays,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// DisplayInfo describes a display process registered with the server.
type DisplayInfo struct {
	ID string `json:"id"`
}
