package display

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junsooki/AirSLM/internal/encoder"
)

func TestHeadlessSnapshots(t *testing.T) {
	dir := t.TempDir()
	b := NewHeadlessBackend([]image.Point{image.Pt(3, 3)})
	require.NoError(t, b.SnapshotTo(dir, encoder.NewPNGEncoder()))

	s, err := b.NewSurface(b.Outputs()[0])
	require.NoError(t, err)
	require.NoError(t, s.Present(image.NewRGBA(image.Rect(0, 0, 3, 3))))
	_, err = os.Stat(filepath.Join(dir, "frame-000001-output0.png"))
	assert.True(t, os.IsNotExist(err), "nothing is written before Show")

	require.NoError(t, s.Show())
	require.NoError(t, b.SnapshotErr())
	_, err = os.Stat(filepath.Join(dir, "frame-000001-output0.png"))
	assert.NoError(t, err)
}

func TestHeadlessRejectsDetachedOutput(t *testing.T) {
	b := NewHeadlessBackend([]image.Point{image.Pt(3, 3)})
	_, err := b.NewSurface(Output{Index: 1})
	assert.Error(t, err)
}
