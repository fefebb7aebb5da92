// Package bridge validates requests coming off the network and hands them
// to the render dispatcher as commands.
//
// Every entry point decodes on the caller's goroutine, enqueues at most one
// command and returns straight away. Whether the frame has been painted by
// then is not known.
package bridge

import (
	"image"
	"sync"

	"github.com/rs/zerolog"

	"github.com/junsooki/AirSLM/internal/command"
	"github.com/junsooki/AirSLM/internal/display"
	"github.com/junsooki/AirSLM/internal/frame"
)

// Ack is the synchronous reply to a request. Completed means the command
// was accepted and queued.
type Ack struct {
	Completed bool
	Error     string
}

// Sink receives accepted commands in order.
type Sink interface {
	Enqueue(cmd command.Command)
}

// Outputs lists attached outputs. It must be safe for concurrent use.
type Outputs interface {
	Outputs() []display.Output
}

// Bridge is the request side of the render context.
type Bridge struct {
	sink    Sink
	outputs Outputs
	log     zerolog.Logger

	// mu orders delivery into sink and guards position.
	mu       sync.Mutex
	position image.Point
}

// New creates a Bridge delivering into sink.
func New(sink Sink, outputs Outputs, log zerolog.Logger) *Bridge {
	return &Bridge{
		sink:    sink,
		outputs: outputs,
		log:     log.With().Str("component", "bridge").Logger(),
	}
}

// SetImage accepts a gray or interleaved RGB image.
func (b *Bridge) SetImage(data []byte, width, height int, mode frame.ColorMode) Ack {
	img, err := frame.DecodeImage(data, width, height, mode)
	if err != nil {
		return b.reject(command.KindSetImage, err)
	}
	return b.deliver(command.SetImage{Image: img})
}

// SetImagePlanes accepts a colour image as separate R, G and B planes.
func (b *Bridge) SetImagePlanes(planes [][]byte, width, height int) Ack {
	img, err := frame.DecodePlanes(planes, width, height)
	if err != nil {
		return b.reject(command.KindSetImage, err)
	}
	return b.deliver(command.SetImage{Image: img})
}

// SetPhaseMask accepts width×height complex128 samples.
func (b *Bridge) SetPhaseMask(data []byte, width, height int) Ack {
	img, err := frame.DecodePhaseMask(data, width, height)
	if err != nil {
		return b.reject(command.KindSetPhaseMask, err)
	}
	return b.deliver(command.SetPhaseMask{Image: img})
}

// SetLUT accepts a flat float64 lookup table of any length.
func (b *Bridge) SetLUT(data []byte) Ack {
	lut, err := frame.DecodeLUT(data)
	if err != nil {
		return b.reject(command.KindSetLUT, err)
	}
	return b.deliver(command.SetLUT{Samples: lut})
}

// SetScreen always succeeds here; the dispatcher resolves the index.
func (b *Bridge) SetScreen(index int) Ack {
	return b.deliver(command.SetScreen{Index: index})
}

// SetPosition is queued and acknowledged but does not move the pattern.
func (b *Bridge) SetPosition(x, y int) Ack {
	p := image.Pt(x, y)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.position = p
	b.sink.Enqueue(command.SetPosition{Point: p})
	return Ack{Completed: true}
}

// NumScreens returns the number of attached outputs.
func (b *Bridge) NumScreens() int {
	return len(b.outputs.Outputs())
}

// Position returns the last position accepted by SetPosition.
func (b *Bridge) Position() (x, y int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.position.X, b.position.Y
}

func (b *Bridge) deliver(cmd command.Command) Ack {
	b.mu.Lock()
	b.sink.Enqueue(cmd)
	b.mu.Unlock()
	b.log.Debug().Stringer("command", cmd).Msg("queued")
	return Ack{Completed: true}
}

func (b *Bridge) reject(kind command.Kind, err error) Ack {
	b.log.Warn().Err(err).Str("command", string(kind)).Msg("request rejected")
	return Ack{Completed: false, Error: err.Error()}
}
