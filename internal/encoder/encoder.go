package encoder

import (
	"fmt"
	"image"
)

// Encoder encodes a presented frame into bytes.
type Encoder interface {
	Encode(img image.Image) ([]byte, error)
	// Ext is the file extension for encoded frames, without the dot.
	Ext() string
}

// ByName resolves the -snapshot-format setting.
func ByName(name string, quality int) (Encoder, error) {
	switch name {
	case "", "png":
		return NewPNGEncoder(), nil
	case "jpeg", "jpg":
		return NewJPEGEncoder(quality), nil
	}
	return nil, fmt.Errorf("unknown snapshot format %q", name)
}
