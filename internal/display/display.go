package display

import (
	"fmt"
	"image"
)

// Output is a physical display the surface can be bound to.
type Output struct {
	Index  int
	Name   string
	Width  int
	Height int
}

// Bounds returns the output rectangle in its own pixel space.
func (o Output) Bounds() image.Rectangle {
	return image.Rect(0, 0, o.Width, o.Height)
}

func (o Output) String() string {
	return fmt.Sprintf("#%d %q %dx%d", o.Index, o.Name, o.Width, o.Height)
}

// Backend enumerates outputs and builds fullscreen surfaces on them.
// Outputs is safe to call from any goroutine; NewSurface is only called by
// the render dispatcher.
type Backend interface {
	Outputs() []Output
	NewSurface(out Output) (Surface, error)
	// Ready is closed once Outputs reflects the attached hardware.
	Ready() <-chan struct{}
}

// Surface is one borderless, non-scrollable fullscreen window on an output.
type Surface interface {
	Output() Output
	// Present replaces the surface content. img has the output's size.
	Present(img *image.RGBA) error
	Show() error
	Close() error
}

// Loop is implemented by backends whose toolkit must own the main goroutine.
type Loop interface {
	Run() error
	Quit()
}
