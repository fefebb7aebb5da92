package display

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/junsooki/AirSLM/internal/frame"
)

// ErrUnbound is returned when painting before any output has been bound.
var ErrUnbound = errors.New("display: no surface bound")

// State is the surface binding state.
type State uint8

const (
	Unbound State = iota
	Bound
)

func (s State) String() string {
	if s == Bound {
		return "bound"
	}
	return "unbound"
}

// Manager owns the single live surface. Its methods must only be called
// from the render dispatcher.
type Manager struct {
	backend Backend
	raster  Rasterizer
	log     zerolog.Logger

	surface Surface
}

// NewManager returns an unbound manager.
func NewManager(backend Backend, raster Rasterizer, log zerolog.Logger) *Manager {
	return &Manager{backend: backend, raster: raster, log: log}
}

// State reports whether a surface is currently bound.
func (m *Manager) State() State {
	if m.surface == nil {
		return Unbound
	}
	return Bound
}

// Output returns the output of the bound surface.
func (m *Manager) Output() (Output, bool) {
	if m.surface == nil {
		return Output{}, false
	}
	return m.surface.Output(), true
}

// Outputs lists the attached outputs.
func (m *Manager) Outputs() []Output {
	return m.backend.Outputs()
}

// Bind destroys the current surface and builds a new one on out. The new
// surface is painted with img and lut before it is shown, so the first
// thing visible on it is the last good frame.
func (m *Manager) Bind(out Output, img *frame.Image, lut []float64) error {
	if m.surface != nil {
		old := m.surface
		m.surface = nil
		if err := old.Close(); err != nil {
			m.log.Warn().Err(err).Stringer("output", old.Output()).Msg("close surface")
		}
	}

	s, err := m.backend.NewSurface(out)
	if err != nil {
		return fmt.Errorf("new surface on %s: %w", out, err)
	}
	if err := s.Present(m.raster.Render(img, lut, out)); err != nil {
		s.Close()
		return fmt.Errorf("paint surface on %s: %w", out, err)
	}
	if err := s.Show(); err != nil {
		s.Close()
		return fmt.Errorf("show surface on %s: %w", out, err)
	}
	m.surface = s
	m.log.Info().Stringer("output", out).Msg("surface bound")
	return nil
}

// Paint replaces what the bound surface shows.
func (m *Manager) Paint(img *frame.Image, lut []float64) error {
	if m.surface == nil {
		return ErrUnbound
	}
	return m.surface.Present(m.raster.Render(img, lut, m.surface.Output()))
}

// Close destroys the bound surface, if any.
func (m *Manager) Close() error {
	if m.surface == nil {
		return nil
	}
	s := m.surface
	m.surface = nil
	return s.Close()
}
