package display

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Colormap turns a complex phase-mask sample into a display intensity.
type Colormap interface {
	Intensity(s complex128, lut []float64) uint8
}

// PhaseColormap maps arg(s) over [-pi, pi] onto the LUT, or onto 0..255
// when no LUT is set.
type PhaseColormap struct{}

func (PhaseColormap) Intensity(s complex128, lut []float64) uint8 {
	t := (cmplx.Phase(s) + math.Pi) / (2 * math.Pi)
	return lookup(t, lut)
}

// MagnitudeColormap maps |s| over [0, Max] onto the LUT. Max defaults to 1.
type MagnitudeColormap struct {
	Max float64
}

func (m MagnitudeColormap) Intensity(s complex128, lut []float64) uint8 {
	limit := m.Max
	if limit <= 0 {
		limit = 1
	}
	t := cmplx.Abs(s) / limit
	if t > 1 {
		t = 1
	}
	return lookup(t, lut)
}

// ColormapByName resolves the -colormap setting.
func ColormapByName(name string) (Colormap, error) {
	switch name {
	case "", "phase":
		return PhaseColormap{}, nil
	case "magnitude":
		return MagnitudeColormap{}, nil
	}
	return nil, fmt.Errorf("unknown colormap %q", name)
}

// lookup maps t in [0,1] to an intensity through lut.
func lookup(t float64, lut []float64) uint8 {
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	if len(lut) == 0 {
		return clampByte(t * 255)
	}
	return clampByte(lut[int(math.Round(t*float64(len(lut)-1)))])
}

// mapSample passes an 8-bit sample through lut.
func mapSample(v uint8, lut []float64) uint8 {
	if len(lut) == 0 {
		return v
	}
	return lookup(float64(v)/255, lut)
}

func clampByte(v float64) uint8 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(math.Round(v))
}
