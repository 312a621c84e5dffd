// Package viewport maps data indices and values to screen coordinates under a
// horizontal zoom/pan, and turns pointer input into zoom/pan updates.
package viewport

import "math"

const (
	MinZoom    = 1.0
	MaxZoom    = 100.0
	ZoomFactor = 1.1
)

// State is the zoom factor and horizontal pan in pixels of the scaled
// content. Every State returned by this package satisfies
// MinZoom <= Zoom <= MaxZoom and 0 <= PanX <= MaxPan(width, Zoom).
type State struct {
	Zoom float64
	PanX float64
}

func Initial() State { return State{Zoom: MinZoom} }

// MaxPan is how far the scaled content can move before its right edge
// enters the view.
func MaxPan(width, zoom float64) float64 {
	return math.Max(0, width*zoom-width)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

// Clamp re-establishes the invariants for a view of the given width. It is
// also what a resize does: the pan is pulled back inside the new bound.
func (s State) Clamp(width float64) State {
	if math.IsNaN(s.Zoom) {
		s.Zoom = MinZoom
	}
	if math.IsNaN(s.PanX) {
		s.PanX = 0
	}
	s.Zoom = clamp(s.Zoom, MinZoom, MaxZoom)
	s.PanX = clamp(s.PanX, 0, MaxPan(width, s.Zoom))
	return s
}

func (s State) ZoomIn(width float64) State {
	s.Zoom *= ZoomFactor
	return s.Clamp(width)
}

func (s State) ZoomOut(width float64) State {
	s.Zoom /= ZoomFactor
	return s.Clamp(width)
}

// Wheel zooms in for a negative deltaY (scrolling up) and out otherwise.
func (s State) Wheel(deltaY, width float64) State {
	if deltaY < 0 {
		return s.ZoomIn(width)
	}
	return s.ZoomOut(width)
}

// Pan moves the content with the pointer: dragging right by deltaX pixels
// reveals content further left.
func (s State) Pan(deltaX, width float64) State {
	s.PanX -= deltaX
	return s.Clamp(width)
}

func (s State) Resize(width float64) State { return s.Clamp(width) }

// Drag tracks an in-flight pan gesture.
type Drag struct {
	active bool
	lastX  float64
}

func (d *Drag) Begin(x float64) {
	d.active = true
	d.lastX = x
}

// Move returns the pointer delta since the previous event, or false when no
// gesture is in progress.
func (d *Drag) Move(x float64) (float64, bool) {
	if !d.active {
		return 0, false
	}
	delta := x - d.lastX
	d.lastX = x
	return delta, true
}

func (d *Drag) End() { d.active = false }

func (d *Drag) Active() bool { return d.active }
