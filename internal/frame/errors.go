package frame

import "fmt"

// DecodeError reports a buffer whose length does not match the declared shape.
type DecodeError struct {
	What string
	Got  int
	Want int
}

func (e *DecodeError) Error() string {
	if e.Want < 0 {
		return fmt.Sprintf("decode %s: %d bytes cannot be reinterpreted", e.What, e.Got)
	}
	return fmt.Sprintf("decode %s: got %d bytes, want %d", e.What, e.Got, e.Want)
}

// ShapeError reports a colour image that does not have exactly three planes.
type ShapeError struct {
	Planes int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("image should have 3 channels, got %d", e.Planes)
}
