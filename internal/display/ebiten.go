package display

import (
	"fmt"
	"image"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// EbitenBackend shows the SLM pattern fullscreen using Ebitengine.
//
// Ebitengine owns a single window, so a "surface" here is the right to put
// pixels in that window on a given monitor. Surfaces are driven from the
// render dispatcher; everything that touches Ebitengine itself happens on
// the game thread in Update and Draw.
type EbitenBackend struct {
	title        string
	quitOnEscape bool

	mu       sync.Mutex
	monitors []*ebiten.MonitorType
	outputs  []Output
	current  *ebitenSurface
	frame    *image.RGBA
	dirty    bool
	want     *ebiten.MonitorType
	quit     bool

	readyOnce sync.Once
	ready     chan struct{}

	// game thread only
	applied     *ebiten.MonitorType
	ebitenImage *ebiten.Image
}

// NewEbitenBackend creates an Ebitengine-based backend.
func NewEbitenBackend(title string, quitOnEscape bool) *EbitenBackend {
	return &EbitenBackend{
		title:        title,
		quitOnEscape: quitOnEscape,
		ready:        make(chan struct{}),
	}
}

// Run starts the Ebitengine game loop. Must be called from the main goroutine.
func (b *EbitenBackend) Run() error {
	ebiten.SetWindowTitle(b.title)
	ebiten.SetWindowDecorated(false)
	ebiten.SetScreenClearedEveryFrame(false)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetCursorMode(ebiten.CursorModeHidden)
	ebiten.SetFullscreen(true)
	return ebiten.RunGame(b)
}

func (b *EbitenBackend) Ready() <-chan struct{} { return b.ready }

// Quit makes Run return after the current frame.
func (b *EbitenBackend) Quit() {
	b.mu.Lock()
	b.quit = true
	b.mu.Unlock()
}

func (b *EbitenBackend) Outputs() []Output {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Output(nil), b.outputs...)
}

func (b *EbitenBackend) NewSurface(out Output) (Surface, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if out.Index < 0 || out.Index >= len(b.monitors) {
		return nil, fmt.Errorf("monitor %d not attached", out.Index)
	}
	return &ebitenSurface{backend: b, out: b.outputs[out.Index], monitor: b.monitors[out.Index]}, nil
}

// --- ebiten.Game interface ---

func (b *EbitenBackend) Update() error {
	if b.quitOnEscape && inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	monitors := ebiten.AppendMonitors(nil)
	outputs := make([]Output, len(monitors))
	for i, m := range monitors {
		w, h := m.Size()
		scale := m.DeviceScaleFactor()
		outputs[i] = Output{
			Index:  i,
			Name:   m.Name(),
			Width:  int(float64(w) * scale),
			Height: int(float64(h) * scale),
		}
	}

	b.mu.Lock()
	b.monitors = monitors
	b.outputs = outputs
	want := b.want
	quit := b.quit
	b.mu.Unlock()
	if quit {
		return ebiten.Termination
	}

	if len(monitors) > 0 {
		b.readyOnce.Do(func() { close(b.ready) })
	}

	if want != nil && want != b.applied {
		ebiten.SetMonitor(want)
		ebiten.SetFullscreen(true)
		b.applied = want
	}
	return nil
}

func (b *EbitenBackend) Draw(screen *ebiten.Image) {
	b.mu.Lock()
	frame := b.frame
	dirty := b.dirty
	b.dirty = false
	b.mu.Unlock()

	// Closing a surface does not clear frame, so the previous pattern stays
	// up until its replacement is shown.
	if frame == nil {
		return
	}

	if b.ebitenImage == nil ||
		b.ebitenImage.Bounds().Dx() != frame.Bounds().Dx() ||
		b.ebitenImage.Bounds().Dy() != frame.Bounds().Dy() {
		if b.ebitenImage != nil {
			b.ebitenImage.Deallocate()
		}
		b.ebitenImage = ebiten.NewImage(frame.Bounds().Dx(), frame.Bounds().Dy())
		dirty = true
	}
	if dirty {
		b.ebitenImage.WritePixels(frame.Pix)
	}
	screen.DrawImage(b.ebitenImage, nil)
}

// Layout keeps the logical screen at the output's native resolution so
// pixels map one to one onto the SLM.
func (b *EbitenBackend) Layout(outsideWidth, outsideHeight int) (int, int) {
	b.mu.Lock()
	frame := b.frame
	b.mu.Unlock()
	if frame == nil {
		return outsideWidth, outsideHeight
	}
	return frame.Bounds().Dx(), frame.Bounds().Dy()
}

type ebitenSurface struct {
	backend *EbitenBackend
	out     Output
	monitor *ebiten.MonitorType
	img     *image.RGBA
	shown   bool
	closed  bool
}

func (s *ebitenSurface) Output() Output { return s.out }

func (s *ebitenSurface) Present(img *image.RGBA) error {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if s.closed {
		return fmt.Errorf("present on closed surface %s", s.out)
	}
	s.img = img
	if s.shown && b.current == s {
		b.frame = img
		b.dirty = true
	}
	return nil
}

// Show moves the window to the surface's monitor and swaps in its frame
// in one step.
func (s *ebitenSurface) Show() error {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if s.closed {
		return fmt.Errorf("show closed surface %s", s.out)
	}
	s.shown = true
	b.current = s
	b.want = s.monitor
	if s.img != nil {
		b.frame = s.img
		b.dirty = true
	}
	return nil
}

func (s *ebitenSurface) Close() error {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	s.closed = true
	if b.current == s {
		b.current = nil
	}
	return nil
}
