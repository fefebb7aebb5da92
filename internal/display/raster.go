package display

import (
	"fmt"
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"

	"github.com/junsooki/AirSLM/internal/frame"
)

// Fit controls how a frame is placed on an output.
type Fit string

const (
	// FitNone draws the frame at native size in the top-left corner.
	FitNone Fit = "none"
	// FitStretch scales the frame to cover the output with nearest-neighbour sampling.
	FitStretch Fit = "stretch"
)

// ParseFit validates the -fit setting.
func ParseFit(s string) (Fit, error) {
	switch Fit(s) {
	case "", FitNone:
		return FitNone, nil
	case FitStretch:
		return FitStretch, nil
	}
	return "", fmt.Errorf("unknown fit %q", s)
}

// Rasterizer converts frame buffers into displayable RGBA pixels.
type Rasterizer struct {
	Colormap Colormap
	Fit      Fit
}

// Render builds an output-sized canvas holding img mapped through lut.
func (r Rasterizer) Render(img *frame.Image, lut []float64, out Output) *image.RGBA {
	canvas := image.NewRGBA(out.Bounds())
	xdraw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.Black), image.Point{}, xdraw.Src)
	if img == nil || img.Width == 0 || img.Height == 0 {
		return canvas
	}
	src := r.Convert(img, lut)
	switch r.Fit {
	case FitStretch:
		xdraw.NearestNeighbor.Scale(canvas, canvas.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	default:
		xdraw.Copy(canvas, image.Point{}, src, src.Bounds(), xdraw.Src, nil)
	}
	return canvas
}

// Convert turns img into an image at its native size.
func (r Rasterizer) Convert(img *frame.Image, lut []float64) image.Image {
	switch img.Kind {
	case frame.KindRGB:
		out := image.NewRGBA(img.Bounds())
		for i := 0; i < img.Width*img.Height; i++ {
			out.Pix[4*i] = mapSample(img.Pix[3*i], lut)
			out.Pix[4*i+1] = mapSample(img.Pix[3*i+1], lut)
			out.Pix[4*i+2] = mapSample(img.Pix[3*i+2], lut)
			out.Pix[4*i+3] = 0xff
		}
		return out
	case frame.KindComplex:
		cm := r.Colormap
		if cm == nil {
			cm = PhaseColormap{}
		}
		out := image.NewGray(img.Bounds())
		for i, s := range img.Samples {
			out.Pix[i] = cm.Intensity(s, lut)
		}
		return out
	default:
		out := image.NewGray(img.Bounds())
		for i, v := range img.Pix {
			out.Pix[i] = mapSample(v, lut)
		}
		return out
	}
}
