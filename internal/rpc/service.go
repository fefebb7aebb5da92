package rpc

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/junsooki/AirSLM/internal/bridge"
	"github.com/junsooki/AirSLM/internal/frame"
)

// Service is what the RPC layer calls into. *bridge.Bridge implements it.
type Service interface {
	SetImage(data []byte, width, height int, mode frame.ColorMode) bridge.Ack
	SetImagePlanes(planes [][]byte, width, height int) bridge.Ack
	SetPhaseMask(data []byte, width, height int) bridge.Ack
	SetLUT(data []byte) bridge.Ack
	SetScreen(index int) bridge.Ack
	SetPosition(x, y int) bridge.Ack
	NumScreens() int
	Position() (x, y int)
}

// Handle runs one request against svc and returns the message to send back.
// ok is false for messages that need no reply.
func Handle(svc Service, msg Message) (reply Message, ok bool) {
	switch msg.Type {
	case TypePing:
		return Message{Type: TypePong, ID: msg.ID, Timestamp: time.Now().UnixMilli()}, true
	case TypeRequest:
	default:
		return Message{}, false
	}

	payload, err := call(svc, msg.Method, msg.Payload)
	if err != nil {
		payload = Response{Completed: false, Error: err.Error()}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		data, _ = json.Marshal(Response{Error: fmt.Sprintf("encode reply: %v", err)})
	}
	return Message{Type: TypeResponse, ID: msg.ID, Method: msg.Method, Payload: data}, true
}

func call(svc Service, method string, raw json.RawMessage) (any, error) {
	switch method {
	case MethodSetImage:
		var req ImageRequest
		if err := decode(method, raw, &req); err != nil {
			return nil, err
		}
		mode := frame.ColorGray
		if req.RGB {
			mode = frame.ColorRGB
		}
		return ack(svc.SetImage(req.ImageBytes, req.Width, req.Height, mode)), nil
	case MethodSetImageColour:
		var req ColourImageRequest
		if err := decode(method, raw, &req); err != nil {
			return nil, err
		}
		return ack(svc.SetImagePlanes(req.Planes, req.Width, req.Height)), nil
	case MethodSetPhaseMask:
		var req PhaseMaskRequest
		if err := decode(method, raw, &req); err != nil {
			return nil, err
		}
		return ack(svc.SetPhaseMask(req.Phasemask, req.Width, req.Height)), nil
	case MethodSetLUT:
		var req LUTRequest
		if err := decode(method, raw, &req); err != nil {
			return nil, err
		}
		return ack(svc.SetLUT(req.LUT)), nil
	case MethodSetScreen:
		var req ScreenRequest
		if err := decode(method, raw, &req); err != nil {
			return nil, err
		}
		return ack(svc.SetScreen(req.Screen)), nil
	case MethodSetPosition:
		var req PositionRequest
		if err := decode(method, raw, &req); err != nil {
			return nil, err
		}
		return ack(svc.SetPosition(req.X, req.Y)), nil
	case MethodGetNumScreens:
		return ScreenReply{Count: svc.NumScreens()}, nil
	case MethodGetPosition:
		x, y := svc.Position()
		return PositionReply{X: x, Y: y}, nil
	}
	return nil, fmt.Errorf("unknown method %q", method)
}

func decode(method string, raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("decode %s request: empty payload", method)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s request: %w", method, err)
	}
	return nil
}

func ack(a bridge.Ack) Response {
	return Response{Completed: a.Completed, Error: a.Error}
}
