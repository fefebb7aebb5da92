// Package decoder turns image files into the raw buffers the display
// process accepts.
package decoder

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/go-errors/errors"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

// Decoder decodes bytes into an image.
type Decoder interface {
	Decode(data []byte) (image.Image, error)
}

// ImageDecoder accepts PNG, JPEG, BMP and TIFF.
type ImageDecoder struct{}

func NewImageDecoder() *ImageDecoder {
	return &ImageDecoder{}
}

func (d *ImageDecoder) Decode(data []byte) (image.Image, error) {
	return decode(bytes.NewReader(data))
}

// DecodeFile reads and decodes the image at path.
func DecodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}
	defer f.Close()
	img, err := decode(f)
	if err != nil {
		return nil, errors.WrapPrefix(err, path, 0)
	}
	return img, nil
}

func decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, 1)
	}
	return img, nil
}

// Gray returns img as row-major 8-bit luminance.
func Gray(img image.Image) (pix []byte, w, h int) {
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(g, g.Bounds(), img, b.Min, xdraw.Src)
	return g.Pix, b.Dx(), b.Dy()
}

// RGB returns img as row-major RGB triplets.
func RGB(img image.Image) (pix []byte, w, h int) {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		xdraw.Draw(rgba, rgba.Bounds(), img, b.Min, xdraw.Src)
	}
	pix = make([]byte, 0, b.Dx()*b.Dy()*3)
	for i := 0; i+3 < len(rgba.Pix); i += 4 {
		pix = append(pix, rgba.Pix[i], rgba.Pix[i+1], rgba.Pix[i+2])
	}
	return pix, b.Dx(), b.Dy()
}

// Planes splits RGB triplets into separate R, G and B planes.
func Planes(rgb []byte) [][]byte {
	n := len(rgb) / 3
	planes := [][]byte{make([]byte, n), make([]byte, n), make([]byte, n)}
	for i := 0; i < n; i++ {
		planes[0][i] = rgb[3*i]
		planes[1][i] = rgb[3*i+1]
		planes[2][i] = rgb[3*i+2]
	}
	return planes
}
