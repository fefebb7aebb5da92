package frame

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ColorMode selects how SetImage bytes are interpreted.
type ColorMode uint8

const (
	ColorGray ColorMode = iota
	ColorRGB
)

// BytesPerSample returns the number of bytes one pixel occupies.
func (m ColorMode) BytesPerSample() int {
	if m == ColorRGB {
		return 3
	}
	return 1
}

func (m ColorMode) kind() Kind {
	if m == ColorRGB {
		return KindRGB
	}
	return KindGray
}

const (
	complexSize = 16
	floatSize   = 8
)

func checkDims(what string, n, width, height, bps int) error {
	// Any shape whose byte count fits in an int is accepted, including
	// zero-area ones.
	if width < 0 || height < 0 || (width > 0 && height > math.MaxInt/bps/width) {
		return &DecodeError{What: fmt.Sprintf("%s %dx%d", what, width, height), Got: n, Want: -1}
	}
	if want := width * height * bps; n != want {
		return &DecodeError{What: what, Got: n, Want: want}
	}
	return nil
}

// DecodeImage reinterprets data as a width×height gray or interleaved RGB image.
// The returned image owns a copy of data.
func DecodeImage(data []byte, width, height int, mode ColorMode) (*Image, error) {
	if err := checkDims("image", len(data), width, height, mode.BytesPerSample()); err != nil {
		return nil, err
	}
	pix := make([]uint8, len(data))
	copy(pix, data)
	return &Image{Kind: mode.kind(), Width: width, Height: height, Pix: pix}, nil
}

// DecodePlanes interleaves three width×height planes into an RGB image.
func DecodePlanes(planes [][]byte, width, height int) (*Image, error) {
	if len(planes) != 3 {
		return nil, &ShapeError{Planes: len(planes)}
	}
	for i, p := range planes {
		if err := checkDims(fmt.Sprintf("plane %d", i), len(p), width, height, 1); err != nil {
			return nil, err
		}
	}
	n := width * height
	pix := make([]uint8, 3*n)
	for i := 0; i < n; i++ {
		pix[3*i] = planes[0][i]
		pix[3*i+1] = planes[1][i]
		pix[3*i+2] = planes[2][i]
	}
	return &Image{Kind: KindRGB, Width: width, Height: height, Pix: pix}, nil
}

// DecodePhaseMask reinterprets data as width×height little-endian complex128 samples.
func DecodePhaseMask(data []byte, width, height int) (*Image, error) {
	if err := checkDims("phase mask", len(data), width, height, complexSize); err != nil {
		return nil, err
	}
	samples := make([]complex128, width*height)
	for i := range samples {
		off := i * complexSize
		re := math.Float64frombits(binary.LittleEndian.Uint64(data[off:]))
		im := math.Float64frombits(binary.LittleEndian.Uint64(data[off+floatSize:]))
		samples[i] = complex(re, im)
	}
	return &Image{Kind: KindComplex, Width: width, Height: height, Samples: samples}, nil
}

// DecodeLUT reinterprets data as little-endian float64 values. Any length
// that is a whole number of floats is accepted, including zero.
func DecodeLUT(data []byte) ([]float64, error) {
	if len(data)%floatSize != 0 {
		return nil, &DecodeError{What: "lut", Got: len(data), Want: -1}
	}
	lut := make([]float64, len(data)/floatSize)
	for i := range lut {
		lut[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*floatSize:]))
	}
	return lut, nil
}

// EncodePhaseMask is the inverse of DecodePhaseMask.
func EncodePhaseMask(samples []complex128) []byte {
	out := make([]byte, len(samples)*complexSize)
	for i, s := range samples {
		off := i * complexSize
		binary.LittleEndian.PutUint64(out[off:], math.Float64bits(real(s)))
		binary.LittleEndian.PutUint64(out[off+floatSize:], math.Float64bits(imag(s)))
	}
	return out
}

// EncodeLUT is the inverse of DecodeLUT.
func EncodeLUT(lut []float64) []byte {
	out := make([]byte, len(lut)*floatSize)
	for i, v := range lut {
		binary.LittleEndian.PutUint64(out[i*floatSize:], math.Float64bits(v))
	}
	return out
}
