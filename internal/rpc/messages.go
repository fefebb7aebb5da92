package rpc

import (
	"encoding/json"
	"errors"
)

// Message types.
const (
	TypeRequest  = "request"
	TypeResponse = "response"
	TypePing     = "ping"
	TypePong     = "pong"
)

// Methods of the slm.SLM service.
const (
	MethodSetImage       = "SetImage"
	MethodSetImageColour = "SetImageColour"
	MethodSetPhaseMask   = "SetPhaseMask"
	MethodSetLUT         = "SetLUT"
	MethodSetScreen      = "SetScreen"
	MethodSetPosition    = "SetPosition"
	MethodGetNumScreens  = "GetNumScreens"
	MethodGetPosition    = "GetPosition"
)

// Message is the envelope for every RPC frame.
type Message struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Method    string          `json:"method,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// ImageRequest carries a gray image, or interleaved RGB when RGB is set.
type ImageRequest struct {
	ImageBytes []byte `json:"image_bytes"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RGB        bool   `json:"rgb,omitempty"`
}

// ColourImageRequest carries a colour image as separate planes.
type ColourImageRequest struct {
	Planes [][]byte `json:"planes"`
	Width  int      `json:"width"`
	Height int      `json:"height"`
}

// PhaseMaskRequest carries little-endian complex128 samples.
type PhaseMaskRequest struct {
	Phasemask []byte `json:"phasemask"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// LUTRequest carries little-endian float64 samples.
type LUTRequest struct {
	LUT []byte `json:"lut"`
}

type ScreenRequest struct {
	Screen int `json:"screen"`
}

type PositionRequest struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Response acknowledges a Set call.
type Response struct {
	Completed bool   `json:"completed"`
	Error     string `json:"error,omitempty"`
}

// Err returns the rejection as an error, or nil when the call completed.
func (r Response) Err() error {
	if r.Completed {
		return nil
	}
	if r.Error == "" {
		return errors.New("request not completed")
	}
	return errors.New(r.Error)
}

type ScreenReply struct {
	Count int `json:"count"`
}

type PositionReply struct {
	X int `json:"x"`
	Y int `json:"y"`
}
