// Package command defines the updates the request bridge hands to the render
// dispatcher. A Command is immutable once built.
package command

import (
	"fmt"
	"image"

	"github.com/junsooki/AirSLM/internal/frame"
)

// Kind identifies a command variant.
type Kind string

const (
	KindSetImage     Kind = "set_image"
	KindSetPhaseMask Kind = "set_phase_mask"
	KindSetLUT       Kind = "set_lut"
	KindSetScreen    Kind = "set_screen"
	KindSetPosition  Kind = "set_position"
)

// Command is one of SetImage, SetPhaseMask, SetLUT, SetScreen or SetPosition.
type Command interface {
	Kind() Kind
	fmt.Stringer
}

// SetImage replaces the displayed image with gray or RGB samples.
type SetImage struct {
	Image *frame.Image
}

// SetPhaseMask replaces the displayed image with complex samples.
type SetPhaseMask struct {
	Image *frame.Image
}

// SetLUT replaces the lookup table.
type SetLUT struct {
	Samples []float64
}

// SetScreen rebinds the surface to another output.
type SetScreen struct {
	Index int
}

// SetPosition records a placement. It has no visible effect.
type SetPosition struct {
	Point image.Point
}

func (SetImage) Kind() Kind     { return KindSetImage }
func (SetPhaseMask) Kind() Kind { return KindSetPhaseMask }
func (SetLUT) Kind() Kind       { return KindSetLUT }
func (SetScreen) Kind() Kind    { return KindSetScreen }
func (SetPosition) Kind() Kind  { return KindSetPosition }

func (c SetImage) String() string {
	return fmt.Sprintf("SetImage{%s %dx%d}", c.Image.Kind, c.Image.Width, c.Image.Height)
}

func (c SetPhaseMask) String() string {
	return fmt.Sprintf("SetPhaseMask{%dx%d}", c.Image.Width, c.Image.Height)
}

func (c SetLUT) String() string      { return fmt.Sprintf("SetLUT{%d samples}", len(c.Samples)) }
func (c SetScreen) String() string   { return fmt.Sprintf("SetScreen{%d}", c.Index) }
func (c SetPosition) String() string { return fmt.Sprintf("SetPosition{%d,%d}", c.Point.X, c.Point.Y) }
