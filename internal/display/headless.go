package display

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"github.com/junsooki/AirSLM/internal/encoder"
)

// HeadlessBackend presents frames into memory instead of onto a monitor.
// It is used for tests and for machines without a display.
type HeadlessBackend struct {
	mu       sync.Mutex
	outputs  []Output
	current  *headlessSurface
	frame    *image.RGBA
	frameOut Output
	presents int
	live     int
	maxLive  int

	snapEnc encoder.Encoder
	snapDir string
	snapErr error

	ready chan struct{}
}

// NewHeadlessBackend creates one virtual output per size.
func NewHeadlessBackend(sizes []image.Point) *HeadlessBackend {
	b := &HeadlessBackend{ready: make(chan struct{})}
	b.SetOutputs(sizes)
	close(b.ready)
	return b
}

// SetOutputs replaces the attached outputs, as if monitors were plugged or unplugged.
func (b *HeadlessBackend) SetOutputs(sizes []image.Point) {
	outputs := make([]Output, len(sizes))
	for i, s := range sizes {
		outputs[i] = Output{Index: i, Name: fmt.Sprintf("headless-%d", i), Width: s.X, Height: s.Y}
	}
	b.mu.Lock()
	b.outputs = outputs
	b.mu.Unlock()
}

// SnapshotTo writes every shown frame into dir using enc.
func (b *HeadlessBackend) SnapshotTo(dir string, enc encoder.Encoder) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b.mu.Lock()
	b.snapDir, b.snapEnc = dir, enc
	b.mu.Unlock()
	return nil
}

func (b *HeadlessBackend) Ready() <-chan struct{} { return b.ready }

func (b *HeadlessBackend) Outputs() []Output {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Output(nil), b.outputs...)
}

func (b *HeadlessBackend) NewSurface(out Output) (Surface, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if out.Index < 0 || out.Index >= len(b.outputs) {
		return nil, fmt.Errorf("headless output %d not attached", out.Index)
	}
	b.live++
	if b.live > b.maxLive {
		b.maxLive = b.live
	}
	return &headlessSurface{backend: b, out: b.outputs[out.Index]}, nil
}

// Frame returns the last shown frame and the output it was shown on.
func (b *HeadlessBackend) Frame() (*image.RGBA, Output, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frame, b.frameOut, b.frame != nil
}

// Presents counts frames that became visible.
func (b *HeadlessBackend) Presents() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.presents
}

// Live returns the number of surfaces not yet closed and the most ever open at once.
func (b *HeadlessBackend) Live() (live, max int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.live, b.maxLive
}

// SnapshotErr returns the last snapshot write failure.
func (b *HeadlessBackend) SnapshotErr() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapErr
}

// publish must be called with b.mu held.
func (b *HeadlessBackend) publish(s *headlessSurface) {
	b.frame = s.img
	b.frameOut = s.out
	b.presents++
	if b.snapEnc == nil {
		return
	}
	data, err := b.snapEnc.Encode(s.img)
	if err == nil {
		name := fmt.Sprintf("frame-%06d-output%d.%s", b.presents, s.out.Index, b.snapEnc.Ext())
		err = os.WriteFile(filepath.Join(b.snapDir, name), data, 0o644)
	}
	b.snapErr = err
}

type headlessSurface struct {
	backend *HeadlessBackend
	out     Output
	img     *image.RGBA
	shown   bool
	closed  bool
}

func (s *headlessSurface) Output() Output { return s.out }

func (s *headlessSurface) Present(img *image.RGBA) error {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if s.closed {
		return fmt.Errorf("present on closed surface %s", s.out)
	}
	s.img = img
	if s.shown {
		b.publish(s)
	}
	return nil
}

func (s *headlessSurface) Show() error {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if s.closed {
		return fmt.Errorf("show closed surface %s", s.out)
	}
	s.shown = true
	b.current = s
	if s.img != nil {
		b.publish(s)
	}
	return nil
}

// Close leaves the last frame in place, like a window that has not been repainted yet.
func (s *headlessSurface) Close() error {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	b.live--
	if b.current == s {
		b.current = nil
	}
	return nil
}
