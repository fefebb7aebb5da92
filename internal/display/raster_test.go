package display

import (
	"image"
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junsooki/AirSLM/internal/frame"
)

func rgbaAt(img *image.RGBA, x, y int) [4]uint8 {
	i := img.PixOffset(x, y)
	return [4]uint8{img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]}
}

func TestRenderGrayNativeTopLeft(t *testing.T) {
	img, err := frame.DecodeImage([]byte{10, 20, 30, 40}, 2, 2, frame.ColorGray)
	require.NoError(t, err)

	out := Rasterizer{Fit: FitNone}.Render(img, nil, Output{Width: 4, Height: 3})
	require.Equal(t, image.Rect(0, 0, 4, 3), out.Bounds())
	assert.Equal(t, [4]uint8{10, 10, 10, 255}, rgbaAt(out, 0, 0))
	assert.Equal(t, [4]uint8{40, 40, 40, 255}, rgbaAt(out, 1, 1))
	assert.Equal(t, [4]uint8{0, 0, 0, 255}, rgbaAt(out, 3, 2), "outside the frame is black")
}

func TestRenderStretch(t *testing.T) {
	img, err := frame.DecodeImage([]byte{0, 255}, 2, 1, frame.ColorGray)
	require.NoError(t, err)

	out := Rasterizer{Fit: FitStretch}.Render(img, nil, Output{Width: 4, Height: 2})
	assert.Equal(t, uint8(0), rgbaAt(out, 1, 1)[0])
	assert.Equal(t, uint8(255), rgbaAt(out, 2, 0)[0])
	assert.Equal(t, uint8(255), rgbaAt(out, 3, 1)[0])
}

func TestRenderRGB(t *testing.T) {
	img, err := frame.DecodePlanes([][]byte{{255}, {128}, {7}}, 1, 1)
	require.NoError(t, err)
	out := Rasterizer{}.Render(img, nil, Output{Width: 1, Height: 1})
	assert.Equal(t, [4]uint8{255, 128, 7, 255}, rgbaAt(out, 0, 0))
}

func TestRenderLargerThanOutputIsClipped(t *testing.T) {
	img := frame.NewGray(8, 8)
	out := Rasterizer{}.Render(img, nil, Output{Width: 2, Height: 2})
	assert.Equal(t, image.Rect(0, 0, 2, 2), out.Bounds())
}

func TestLUTAppliesToGray(t *testing.T) {
	img, err := frame.DecodeImage([]byte{0, 255}, 2, 1, frame.ColorGray)
	require.NoError(t, err)
	lut := []float64{200, 100, 50}

	out := Rasterizer{}.Render(img, lut, Output{Width: 2, Height: 1})
	assert.Equal(t, uint8(200), rgbaAt(out, 0, 0)[0])
	assert.Equal(t, uint8(50), rgbaAt(out, 1, 0)[0])
}

func TestPhaseColormap(t *testing.T) {
	cm := PhaseColormap{}
	assert.Equal(t, uint8(128), cm.Intensity(1, nil), "phase 0 is mid-scale")
	assert.Equal(t, uint8(255), cm.Intensity(-1, nil), "phase pi is full scale")
	assert.Equal(t, uint8(64), cm.Intensity(cmplx.Exp(complex(0, -math.Pi/2)), nil))

	lut := []float64{0, 10, 20, 30, 40}
	assert.Equal(t, uint8(20), cm.Intensity(1, lut))
	assert.Equal(t, uint8(40), cm.Intensity(-1, lut))
}

func TestMagnitudeColormap(t *testing.T) {
	cm := MagnitudeColormap{Max: 2}
	assert.Equal(t, uint8(0), cm.Intensity(0, nil))
	assert.Equal(t, uint8(128), cm.Intensity(1i, nil))
	assert.Equal(t, uint8(255), cm.Intensity(5, nil))
}

func TestLUTValuesClamp(t *testing.T) {
	assert.Equal(t, uint8(0), lookup(0, []float64{-40, 0}))
	assert.Equal(t, uint8(255), lookup(1, []float64{0, 1e9}))
	assert.Equal(t, uint8(0), lookup(1, []float64{0, math.NaN()}))
}

func TestParseSettings(t *testing.T) {
	fit, err := ParseFit("")
	require.NoError(t, err)
	assert.Equal(t, FitNone, fit)
	_, err = ParseFit("zoom")
	assert.Error(t, err)

	cm, err := ColormapByName("magnitude")
	require.NoError(t, err)
	assert.IsType(t, MagnitudeColormap{}, cm)
	_, err = ColormapByName("hsv")
	assert.Error(t, err)
}
