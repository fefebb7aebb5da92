package display

import (
	"image"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junsooki/AirSLM/internal/frame"
)

func newTestManager(sizes ...image.Point) (*Manager, *HeadlessBackend) {
	b := NewHeadlessBackend(sizes)
	return NewManager(b, Rasterizer{}, zerolog.Nop()), b
}

func TestManagerStateMachine(t *testing.T) {
	m, b := newTestManager(image.Pt(4, 4), image.Pt(6, 2))
	assert.Equal(t, Unbound, m.State())
	assert.ErrorIs(t, m.Paint(frame.NewGray(1, 1), nil), ErrUnbound)

	outs := m.Outputs()
	require.Len(t, outs, 2)

	img, err := frame.DecodeImage([]byte{0, 0, 0, 255}, 2, 2, frame.ColorGray)
	require.NoError(t, err)
	lut := []float64{0, 200}

	require.NoError(t, m.Bind(outs[0], img, lut))
	assert.Equal(t, Bound, m.State())
	got, ok := m.Output()
	require.True(t, ok)
	assert.Equal(t, 0, got.Index)

	require.NoError(t, m.Bind(outs[1], img, lut))
	shown, on, ok := b.Frame()
	require.True(t, ok)
	assert.Equal(t, 1, on.Index)
	assert.Equal(t, image.Rect(0, 0, 6, 2), shown.Bounds())
	assert.Equal(t, uint8(200), shown.Pix[shown.PixOffset(1, 1)], "rebound surface shows the previous image and lut")

	live, max := b.Live()
	assert.Equal(t, 1, live)
	assert.Equal(t, 1, max, "never more than one live surface")

	require.NoError(t, m.Close())
	assert.Equal(t, Unbound, m.State())
}

func TestManagerBindFailureLeavesUnbound(t *testing.T) {
	m, b := newTestManager(image.Pt(2, 2))
	require.NoError(t, m.Bind(m.Outputs()[0], frame.NewGray(2, 2), nil))

	b.SetOutputs(nil)
	err := m.Bind(Output{Index: 0, Width: 2, Height: 2}, frame.NewGray(2, 2), nil)
	require.Error(t, err)
	assert.Equal(t, Unbound, m.State())
}

func TestManagerPaintBeforeShowIsNotVisibleEarly(t *testing.T) {
	m, b := newTestManager(image.Pt(2, 2))
	require.NoError(t, m.Bind(m.Outputs()[0], frame.NewGray(2, 2), nil))
	assert.Equal(t, 1, b.Presents(), "bind presents exactly one already painted frame")

	img, err := frame.DecodeImage([]byte{9, 9, 9, 9}, 2, 2, frame.ColorGray)
	require.NoError(t, err)
	require.NoError(t, m.Paint(img, nil))
	assert.Equal(t, 2, b.Presents())
	shown, _, _ := b.Frame()
	assert.Equal(t, uint8(9), shown.Pix[0])
}
