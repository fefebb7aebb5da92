package render

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junsooki/AirSLM/internal/command"
	"github.com/junsooki/AirSLM/internal/display"
	"github.com/junsooki/AirSLM/internal/frame"
)

func newTestDispatcher(t *testing.T, opts Options, sizes ...image.Point) (*Dispatcher, *display.HeadlessBackend) {
	t.Helper()
	b := display.NewHeadlessBackend(sizes)
	m := display.NewManager(b, display.Rasterizer{}, zerolog.Nop())
	opts.Log = zerolog.Nop()
	return NewDispatcher(m, opts), b
}

func grayImage(t *testing.T, w, h int, fill byte) *frame.Image {
	t.Helper()
	data := make([]byte, w*h)
	for i := range data {
		data[i] = fill
	}
	img, err := frame.DecodeImage(data, w, h, frame.ColorGray)
	require.NoError(t, err)
	return img
}

func TestStartShowsZeroBufferOnFirstOutput(t *testing.T) {
	d, b := newTestDispatcher(t, Options{}, image.Pt(8, 6), image.Pt(4, 4))
	require.NoError(t, d.Start())

	st := d.Status()
	assert.Equal(t, 8, st.Width)
	assert.Equal(t, 6, st.Height)
	assert.Equal(t, 0, st.Screen)
	assert.False(t, st.HasLUT)

	shown, out, ok := b.Frame()
	require.True(t, ok)
	assert.Equal(t, 0, out.Index)
	for i := 0; i < len(shown.Pix); i += 4 {
		require.Equal(t, uint8(0), shown.Pix[i])
	}
}

func TestStartWithoutOutputs(t *testing.T) {
	d, _ := newTestDispatcher(t, Options{})
	assert.ErrorIs(t, d.Start(), ErrNoOutputs)
}

func TestSetImageReplacesImage(t *testing.T) {
	d, b := newTestDispatcher(t, Options{}, image.Pt(4, 4))
	require.NoError(t, d.Start())

	img := grayImage(t, 3, 2, 77)
	require.NoError(t, d.Apply(command.SetImage{Image: img}))
	assert.Same(t, img, d.State().Image)

	shown, _, _ := b.Frame()
	assert.Equal(t, uint8(77), shown.Pix[shown.PixOffset(2, 1)])
	assert.Equal(t, uint8(0), shown.Pix[shown.PixOffset(3, 3)])
}

func TestLUTSurvivesImageChange(t *testing.T) {
	d, b := newTestDispatcher(t, Options{}, image.Pt(2, 2))
	require.NoError(t, d.Start())

	lut := []float64{10, 250}
	require.NoError(t, d.Apply(command.SetLUT{Samples: lut}))
	require.NoError(t, d.Apply(command.SetImage{Image: grayImage(t, 2, 2, 255)}))

	assert.Equal(t, lut, d.State().LUT)
	shown, _, _ := b.Frame()
	assert.Equal(t, uint8(250), shown.Pix[0])

	require.NoError(t, d.Apply(command.SetImage{Image: grayImage(t, 2, 2, 0)}))
	shown, _, _ = b.Frame()
	assert.Equal(t, uint8(10), shown.Pix[0])
}

func TestSetScreenOutOfRangeClampsAndPreserves(t *testing.T) {
	d, b := newTestDispatcher(t, Options{}, image.Pt(4, 4), image.Pt(6, 5))
	require.NoError(t, d.Start())

	img := grayImage(t, 4, 4, 255)
	lut := []float64{0, 128}
	require.NoError(t, d.Apply(command.SetImage{Image: img}))
	require.NoError(t, d.Apply(command.SetLUT{Samples: lut}))

	for _, idx := range []int{99, 2, -1} {
		require.NoError(t, d.Apply(command.SetScreen{Index: idx}))
		st := d.Status()
		assert.Equal(t, 1, st.Screen)
		assert.Equal(t, 1, st.Output.Index)
		assert.Same(t, img, d.State().Image)
		assert.Equal(t, lut, d.State().LUT)
	}

	shown, out, _ := b.Frame()
	assert.Equal(t, 1, out.Index)
	assert.Equal(t, image.Rect(0, 0, 6, 5), shown.Bounds())
	assert.Equal(t, uint8(128), shown.Pix[shown.PixOffset(3, 3)])
	assert.Equal(t, uint8(0), shown.Pix[shown.PixOffset(5, 4)])

	live, max := b.Live()
	assert.Equal(t, 1, live)
	assert.Equal(t, 1, max)
}

func TestSetPositionIsStoredOnly(t *testing.T) {
	d, b := newTestDispatcher(t, Options{}, image.Pt(2, 2))
	require.NoError(t, d.Start())
	before := b.Presents()

	require.NoError(t, d.Apply(command.SetPosition{Point: image.Pt(12, -3)}))
	assert.Equal(t, image.Pt(12, -3), d.Status().Position)
	assert.Equal(t, before, b.Presents(), "position does not repaint")
}

func TestApplyFailuresDoNotStopTheLoop(t *testing.T) {
	var mu sync.Mutex
	var errs []error
	d, b := newTestDispatcher(t, Options{Observer: func(_ command.Command, _ Status, err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}}, image.Pt(4, 4))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	// Panics inside the rasterizer.
	d.Enqueue(command.SetImage{Image: &frame.Image{Kind: frame.KindRGB, Width: 2, Height: 2}})
	require.Eventually(t, func() bool { return d.Applied() == 1 }, time.Second, 5*time.Millisecond)
	// Every output gone: bind fails.
	b.SetOutputs(nil)
	d.Enqueue(command.SetScreen{Index: 0})
	d.Enqueue(command.SetPosition{Point: image.Pt(1, 1)})

	require.Eventually(t, func() bool { return d.Applied() == 3 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, errs, 3)
	assert.Error(t, errs[0])
	assert.Error(t, errs[1])
	assert.NoError(t, errs[2])
}

func TestCommandsApplyInQueueOrder(t *testing.T) {
	var mu sync.Mutex
	var widths []int
	d, _ := newTestDispatcher(t, Options{Observer: func(cmd command.Command, st Status, err error) {
		if _, ok := cmd.(command.SetImage); ok {
			mu.Lock()
			widths = append(widths, st.Width)
			mu.Unlock()
		}
	}}, image.Pt(16, 16))

	for w := 1; w <= 10; w++ {
		d.Enqueue(command.SetImage{Image: grayImage(t, w, 1, 0)})
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	require.Eventually(t, func() bool { return d.Applied() == 10 }, time.Second, 5*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, widths)
}

// flakyBackend fails the first fails calls to NewSurface.
type flakyBackend struct {
	*display.HeadlessBackend
	fails int
}

func (f *flakyBackend) NewSurface(out display.Output) (display.Surface, error) {
	if f.fails > 0 {
		f.fails--
		return nil, errors.New("surface unavailable")
	}
	return f.HeadlessBackend.NewSurface(out)
}

func TestFailedInitialBindRecoversOnSetScreen(t *testing.T) {
	hb := display.NewHeadlessBackend([]image.Point{{4, 4}})
	m := display.NewManager(&flakyBackend{HeadlessBackend: hb, fails: 1}, display.Rasterizer{}, zerolog.Nop())
	d := NewDispatcher(m, Options{Log: zerolog.Nop()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	d.Enqueue(command.SetImage{Image: grayImage(t, 2, 2, 200)})
	d.Enqueue(command.SetScreen{Index: 0})
	require.Eventually(t, func() bool { return d.Applied() == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	shown, out, ok := hb.Frame()
	require.True(t, ok)
	assert.Equal(t, 0, out.Index)
	assert.Equal(t, uint8(200), shown.Pix[shown.PixOffset(1, 1)])
	assert.Equal(t, 0, d.Pending())
}

func TestPanickingCommandIsRolledBack(t *testing.T) {
	d, b := newTestDispatcher(t, Options{}, image.Pt(2, 2))
	require.NoError(t, d.Start())
	good := d.State().Image

	err := d.Apply(command.SetImage{Image: &frame.Image{Kind: frame.KindRGB, Width: 2, Height: 2}})
	require.Error(t, err)
	assert.Same(t, good, d.State().Image)

	require.NoError(t, d.Apply(command.SetLUT{Samples: []float64{90, 90}}))
	shown, _, _ := b.Frame()
	assert.Equal(t, uint8(90), shown.Pix[0])
}
