// Package frame holds the pixel and phase data shown on the SLM and the
// decoders that turn raw request buffers into it.
//
// An Image is never modified after construction. Replacing what is on the
// display means building a new Image and handing it to the render context.
package frame

import "image"

// Kind identifies the sample layout of an Image.
type Kind uint8

const (
	// KindGray is one unsigned 8-bit sample per pixel.
	KindGray Kind = iota
	// KindRGB is three interleaved unsigned 8-bit samples per pixel.
	KindRGB
	// KindComplex is one complex128 phase/amplitude sample per pixel.
	KindComplex
)

func (k Kind) String() string {
	switch k {
	case KindGray:
		return "gray"
	case KindRGB:
		return "rgb"
	case KindComplex:
		return "complex"
	}
	return "unknown"
}

// Image is a width×height buffer of gray, RGB or complex samples, stored row-major.
type Image struct {
	Kind   Kind
	Width  int
	Height int

	// Pix holds gray (Width*Height) or interleaved RGB (3*Width*Height) samples.
	Pix []uint8
	// Samples holds complex samples for KindComplex.
	Samples []complex128
}

// NewGray returns an all-zero gray image.
func NewGray(width, height int) *Image {
	return &Image{
		Kind:   KindGray,
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// Bounds returns the image rectangle anchored at the origin.
func (img *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, img.Width, img.Height)
}

// State is everything the render context knows about what is displayed.
// Exactly one State exists per display process and only the render
// dispatcher touches it.
type State struct {
	Image *Image
	// LUT is nil until a lookup table has been set.
	LUT      []float64
	Screen   int
	Position image.Point
}

// NewState returns the startup state: a zero buffer sized to the first output.
func NewState(width, height int) *State {
	return &State{Image: NewGray(width, height)}
}
