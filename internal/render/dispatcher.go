// Package render runs the single goroutine that owns what is on the SLM.
//
// Commands arrive on an unbounded queue from any number of request
// goroutines. The dispatcher applies them one at a time, in queue order, to
// the frame state and the display manager. Nothing else reads or writes
// either of them.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync/atomic"

	goerrors "github.com/go-errors/errors"
	"github.com/rs/zerolog"

	"github.com/junsooki/AirSLM/internal/command"
	"github.com/junsooki/AirSLM/internal/display"
	"github.com/junsooki/AirSLM/internal/frame"
)

// ErrNoOutputs is returned when no physical output is attached.
var ErrNoOutputs = errors.New("no outputs attached")

// Status is a copy of the frame state taken after a command was applied.
type Status struct {
	Kind     frame.Kind
	Width    int
	Height   int
	LUTLen   int
	HasLUT   bool
	Screen   int
	Position image.Point
	Output   display.Output
	Bound    bool
}

// Observer is called on the render goroutine after every command.
type Observer func(cmd command.Command, st Status, err error)

// Options configure a Dispatcher.
type Options struct {
	// InitialScreen is the output bound at startup.
	InitialScreen int
	Log           zerolog.Logger
	// Debug logs stack traces for apply failures.
	Debug    bool
	Observer Observer
}

// Dispatcher is the render context.
type Dispatcher struct {
	queue   *Queue[command.Command]
	manager *display.Manager
	opts    Options
	log     zerolog.Logger

	state   *frame.State
	applied atomic.Uint64
}

// NewDispatcher creates a dispatcher driving manager.
func NewDispatcher(manager *display.Manager, opts Options) *Dispatcher {
	return &Dispatcher{
		queue:   NewQueue[command.Command](),
		manager: manager,
		opts:    opts,
		log:     opts.Log.With().Str("component", "render").Logger(),
	}
}

// Enqueue hands cmd to the render goroutine. Safe for concurrent use.
func (d *Dispatcher) Enqueue(cmd command.Command) {
	d.queue.Push(cmd)
}

// Pending returns the number of queued commands.
func (d *Dispatcher) Pending() int { return d.queue.Len() }

// Applied returns the number of commands taken off the queue and applied,
// successfully or not.
func (d *Dispatcher) Applied() uint64 { return d.applied.Load() }

// Start binds the initial output and shows an all-zero buffer sized to it.
// Only ErrNoOutputs is returned; a failed bind is logged and the
// dispatcher stays Unbound until a later SetScreen succeeds.
func (d *Dispatcher) Start() error {
	outs := d.manager.Outputs()
	if len(outs) == 0 {
		return ErrNoOutputs
	}
	out := outs[d.resolve(d.opts.InitialScreen, outs)]
	d.state = frame.NewState(out.Width, out.Height)
	d.state.Screen = out.Index
	if err := d.manager.Bind(out, d.state.Image, d.state.LUT); err != nil {
		d.log.Error().Err(err).Stringer("output", out).Msg("initial bind failed, waiting for SetScreen")
	}
	return nil
}

// Run starts the dispatcher and applies queued commands until ctx is done.
// A failing command is logged and the loop moves on.
func (d *Dispatcher) Run(ctx context.Context) error {
	if err := d.Start(); err != nil {
		return fmt.Errorf("render start: %w", err)
	}
	for {
		cmd, err := d.queue.Pop(ctx)
		if err != nil {
			return nil
		}
		d.Apply(cmd)
	}
}

// Apply applies one command to completion. It must only be called from
// the goroutine running Run, or before Run starts.
func (d *Dispatcher) Apply(cmd command.Command) (err error) {
	var rollback func()
	defer func() {
		if r := recover(); r != nil {
			err = goerrors.Wrap(r, 2)
			// A command that panics must not leave its data behind for
			// the next paint to trip over.
			if rollback != nil {
				rollback()
			}
		}
		d.applied.Add(1)
		if err != nil {
			d.logFailure(cmd, err)
		}
		if d.opts.Observer != nil {
			d.opts.Observer(cmd, d.Status(), err)
		}
	}()
	if d.state == nil {
		return goerrors.Errorf("apply %s before start", cmd)
	}
	img, lut := d.state.Image, d.state.LUT
	rollback = func() { d.state.Image, d.state.LUT = img, lut }

	switch c := cmd.(type) {
	case command.SetImage:
		d.state.Image = c.Image
		return d.paint()
	case command.SetPhaseMask:
		d.state.Image = c.Image
		return d.paint()
	case command.SetLUT:
		d.state.LUT = c.Samples
		return d.paint()
	case command.SetScreen:
		return d.rebind(c.Index)
	case command.SetPosition:
		// Stored only: placement on the output is not implemented.
		d.state.Position = c.Point
		return nil
	}
	return goerrors.Errorf("unknown command %T", cmd)
}

// State returns the live frame state. Only the render goroutine may use it.
func (d *Dispatcher) State() *frame.State { return d.state }

// Status copies the frame state.
func (d *Dispatcher) Status() Status {
	if d.state == nil {
		return Status{}
	}
	st := Status{
		Screen:   d.state.Screen,
		Position: d.state.Position,
		LUTLen:   len(d.state.LUT),
		HasLUT:   d.state.LUT != nil,
	}
	if img := d.state.Image; img != nil {
		st.Kind, st.Width, st.Height = img.Kind, img.Width, img.Height
	}
	st.Output, st.Bound = d.manager.Output()
	return st
}

func (d *Dispatcher) paint() error {
	if err := d.manager.Paint(d.state.Image, d.state.LUT); err != nil {
		return goerrors.WrapPrefix(err, "paint", 0)
	}
	return nil
}

func (d *Dispatcher) rebind(index int) error {
	outs := d.manager.Outputs()
	if len(outs) == 0 {
		return goerrors.Wrap(ErrNoOutputs, 0)
	}
	resolved := d.resolve(index, outs)
	if err := d.manager.Bind(outs[resolved], d.state.Image, d.state.LUT); err != nil {
		return goerrors.WrapPrefix(err, "bind", 0)
	}
	d.state.Screen = resolved
	return nil
}

// resolve clamps index to the last attached output.
func (d *Dispatcher) resolve(index int, outs []display.Output) int {
	if index >= 0 && index < len(outs) {
		return index
	}
	last := len(outs) - 1
	d.log.Warn().Int("requested", index).Int("resolved", last).Int("outputs", len(outs)).
		Msg("no screen at that index, using last screen")
	return last
}

func (d *Dispatcher) logFailure(cmd command.Command, err error) {
	kind := "nil"
	if cmd != nil {
		kind = string(cmd.Kind())
	}
	ev := d.log.Error().Err(err).Str("command", kind)
	var stacked *goerrors.Error
	if d.opts.Debug && errors.As(err, &stacked) {
		ev = ev.Str("stack", stacked.ErrorStack())
	}
	ev.Msg("apply command")
}
