// Package rendertest provides a render.Surface that records draw calls instead
// of drawing them, for asserting on chart output in tests.
package rendertest

import (
	"image/color"

	"github.com/keilerkonzept/streamdash/render"
)

type OpKind int

const (
	OpClear OpKind = iota
	OpPolyline
	OpCircle
	OpRect
)

// Op is one recorded draw call.
type Op struct {
	Kind   OpKind
	Rect   render.Rect
	Points []render.Point
	Radius float64
	Width  float64
	Color  color.Color
}

// Recorder is a Surface that only remembers the calls made on it.
type Recorder struct {
	W, H int
	Ops  []Op
}

func (r *Recorder) Size() (int, int) { return r.W, r.H }

func (r *Recorder) Clear(rect render.Rect) {
	r.Ops = append(r.Ops, Op{Kind: OpClear, Rect: rect})
}

func (r *Recorder) StrokePolyline(pts []render.Point, width float64, c color.Color) {
	r.Ops = append(r.Ops, Op{Kind: OpPolyline, Points: append([]render.Point(nil), pts...), Width: width, Color: c})
}

func (r *Recorder) FillCircle(center render.Point, radius float64, c color.Color) {
	r.Ops = append(r.Ops, Op{Kind: OpCircle, Points: []render.Point{center}, Radius: radius, Color: c})
}

func (r *Recorder) FillRect(rect render.Rect, c color.Color) {
	r.Ops = append(r.Ops, Op{Kind: OpRect, Rect: rect, Color: c})
}

// Count returns how many ops of kind k were recorded.
func (r *Recorder) Count(k OpKind) int {
	n := 0
	for _, op := range r.Ops {
		if op.Kind == k {
			n++
		}
	}
	return n
}

func (r *Recorder) Reset() { r.Ops = r.Ops[:0] }

var _ render.Surface = (*Recorder)(nil)
