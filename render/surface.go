// Package render runs the per-frame draw loop and provides the raster surface
// charts draw on, plus presenters that turn the raster into terminal cells.
package render

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle; W and H may be negative.
type Rect struct {
	X, Y, W, H float64
}

// Canon returns r with non-negative width and height.
func (r Rect) Canon() Rect {
	if r.W < 0 {
		r.X, r.W = r.X+r.W, -r.W
	}
	if r.H < 0 {
		r.Y, r.H = r.Y+r.H, -r.H
	}
	return r
}

// Surface is a 2-D raster of known size accepting primitive draw operations.
// Coordinates are in pixels with the origin at the top-left corner.
type Surface interface {
	Size() (width, height int)
	Clear(r Rect)
	StrokePolyline(pts []Point, width float64, c color.Color)
	FillCircle(center Point, radius float64, c color.Color)
	FillRect(r Rect, c color.Color)
}

// Bounds is the rectangle covering all of s.
func Bounds(s Surface) Rect {
	w, h := s.Size()
	return Rect{W: float64(w), H: float64(h)}
}

// ParseHex parses "#rrggbb" or "#rgb" into an opaque colour.
func ParseHex(s string) (color.RGBA, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{}, errors.Wrapf(err, "parse colour %q", s)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// MustHex is ParseHex for colour literals. It panics on malformed input.
func MustHex(s string) color.RGBA {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// RGBA returns the non-premultiplied colour r, g, b at opacity alpha in [0,1].
func RGBA(r, g, b uint8, alpha float64) color.NRGBA {
	a := math.Round(math.Max(0, math.Min(alpha, 1)) * 255)
	return color.NRGBA{R: r, G: g, B: b, A: uint8(a)}
}
