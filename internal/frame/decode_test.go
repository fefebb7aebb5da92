package frame

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeImageGray(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4, 5}
	img, err := DecodeImage(data, 3, 2, ColorGray)
	require.NoError(t, err)
	assert.Equal(t, KindGray, img.Kind)
	assert.Equal(t, 3, img.Width)
	assert.Equal(t, 2, img.Height)
	assert.Equal(t, data, []byte(img.Pix))

	data[0] = 99
	assert.Equal(t, uint8(0), img.Pix[0], "image must own its buffer")
}

func TestDecodeImageLengthMismatch(t *testing.T) {
	for _, tc := range []struct {
		name string
		n    int
		w, h int
		mode ColorMode
	}{
		{"short", 5, 3, 2, ColorGray},
		{"long", 7, 3, 2, ColorGray},
		{"rgb counted as gray", 6, 3, 2, ColorRGB},
		{"zero width with data", 2, 0, 2, ColorGray},
		{"negative", 4, -2, -2, ColorGray},
		{"overflowing", 1, math.MaxInt / 2, 3, ColorGray},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeImage(make([]byte, tc.n), tc.w, tc.h, tc.mode)
			var de *DecodeError
			require.True(t, errors.As(err, &de), "got %v", err)
		})
	}
}

func TestDecodeImageAnyValidShape(t *testing.T) {
	img, err := DecodeImage(make([]byte, 70000), 70000, 1, ColorGray)
	require.NoError(t, err)
	assert.Equal(t, 70000, img.Width)

	img, err = DecodeImage(nil, 0, 5, ColorGray)
	require.NoError(t, err)
	assert.Equal(t, 0, img.Width)
	assert.Equal(t, 5, img.Height)

	_, err = DecodePhaseMask(nil, 0, 0)
	assert.NoError(t, err)
}

func TestDecodePlanes(t *testing.T) {
	r := []byte{1, 2}
	g := []byte{3, 4}
	b := []byte{5, 6}
	img, err := DecodePlanes([][]byte{r, g, b}, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, KindRGB, img.Kind)
	assert.Equal(t, []uint8{1, 3, 5, 2, 4, 6}, img.Pix)
}

func TestDecodePlanesShape(t *testing.T) {
	plane := []byte{0, 0, 0, 0}
	for _, n := range []int{0, 1, 2, 4} {
		planes := make([][]byte, n)
		for i := range planes {
			planes[i] = plane
		}
		_, err := DecodePlanes(planes, 2, 2)
		var se *ShapeError
		require.True(t, errors.As(err, &se), "planes=%d: got %v", n, err)
		assert.Equal(t, n, se.Planes)
	}

	_, err := DecodePlanes([][]byte{plane, plane, {0}}, 2, 2)
	var de *DecodeError
	require.True(t, errors.As(err, &de))
}

func TestPhaseMaskRoundTrip(t *testing.T) {
	samples := []complex128{
		cmplx.Exp(complex(0, 0.1*math.Pi)),
		cmplx.Exp(complex(0, -0.5*math.Pi)),
		complex(0.25, -4),
		0,
	}
	img, err := DecodePhaseMask(EncodePhaseMask(samples), 2, 2)
	require.NoError(t, err)
	assert.Equal(t, KindComplex, img.Kind)
	assert.Equal(t, samples, img.Samples)

	_, err = DecodePhaseMask(make([]byte, 63), 2, 2)
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 64, de.Want)
}

func TestDecodeLUT(t *testing.T) {
	lut, err := DecodeLUT(EncodeLUT([]float64{0, 127.5, 255}))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 127.5, 255}, lut)

	lut, err = DecodeLUT(nil)
	require.NoError(t, err)
	assert.Empty(t, lut)

	_, err = DecodeLUT(make([]byte, 9))
	var de *DecodeError
	require.True(t, errors.As(err, &de))
}
