package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

const circleSegments = 16

// Raster is a Surface backed by an RGBA image. Filled paths of one colour are
// batched into a single rasteriser pass; the batch is flushed when another
// colour or primitive follows, and by Image.
type Raster struct {
	img *image.RGBA
	z   *vector.Rasterizer

	pending    bool
	pendingCol color.Color
}

func NewRaster(width, height int) *Raster {
	width, height = max(width, 1), max(height, 1)
	z := vector.NewRasterizer(width, height)
	z.DrawOp = draw.Over
	return &Raster{
		img: image.NewRGBA(image.Rect(0, 0, width, height)),
		z:   z,
	}
}

func (r *Raster) Size() (int, int) {
	b := r.img.Bounds()
	return b.Dx(), b.Dy()
}

// Image flushes pending paths and returns the backing image. The image is
// reused by later frames.
func (r *Raster) Image() *image.RGBA {
	r.flush()
	return r.img
}

func (r *Raster) pixelRect(rect Rect) image.Rectangle {
	rect = rect.Canon()
	ir := image.Rect(
		int(math.Round(rect.X)), int(math.Round(rect.Y)),
		int(math.Round(rect.X+rect.W)), int(math.Round(rect.Y+rect.H)),
	)
	return ir.Intersect(r.img.Bounds())
}

func (r *Raster) Clear(rect Rect) {
	r.flush()
	draw.Draw(r.img, r.pixelRect(rect), image.Transparent, image.Point{}, draw.Src)
}

// FillRect snaps rectangles of at least a pixel in both directions to the
// pixel grid. Thinner ones go through the rasteriser, so a run of sub-pixel
// bars still inks the columns it covers in proportion to its coverage.
func (r *Raster) FillRect(rect Rect, c color.Color) {
	rect = rect.Canon()
	if rect.W == 0 || rect.H == 0 {
		return
	}
	if rect.W < 1 || rect.H < 1 {
		r.fillPolygon([]Point{
			{X: rect.X, Y: rect.Y},
			{X: rect.X + rect.W, Y: rect.Y},
			{X: rect.X + rect.W, Y: rect.Y + rect.H},
			{X: rect.X, Y: rect.Y + rect.H},
		}, c)
		return
	}
	r.flush()
	ir := r.pixelRect(rect)
	if ir.Empty() {
		return
	}
	draw.Draw(r.img, ir, image.NewUniform(c), image.Point{}, draw.Over)
}

func (r *Raster) FillCircle(center Point, radius float64, c color.Color) {
	if radius <= 0 {
		return
	}
	poly := make([]Point, circleSegments)
	for i := range poly {
		a := 2 * math.Pi * float64(i) / circleSegments
		poly[i] = Point{X: center.X + radius*math.Cos(a), Y: center.Y + radius*math.Sin(a)}
	}
	r.fillPolygon(poly, c)
}

// StrokePolyline strokes each segment as a quad extended by half the width
// at both ends, which also covers the joints. All quads share one winding
// direction, so overlaps do not cancel out.
func (r *Raster) StrokePolyline(pts []Point, width float64, c color.Color) {
	if len(pts) < 2 || width <= 0 {
		return
	}
	hw := width / 2
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		dx, dy := b.X-a.X, b.Y-a.Y
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		ux, uy := dx/l*hw, dy/l*hw
		nx, ny := -uy, ux
		a = Point{X: a.X - ux, Y: a.Y - uy}
		b = Point{X: b.X + ux, Y: b.Y + uy}
		r.fillPolygon([]Point{
			{X: a.X + nx, Y: a.Y + ny},
			{X: b.X + nx, Y: b.Y + ny},
			{X: b.X - nx, Y: b.Y - ny},
			{X: a.X - nx, Y: a.Y - ny},
		}, c)
	}
}

func (r *Raster) fillPolygon(poly []Point, c color.Color) {
	w, h := r.Size()
	poly = clipPolygon(poly, float64(w), float64(h))
	if len(poly) < 3 {
		return
	}
	if r.pending && r.pendingCol != c {
		r.flush()
	}
	r.z.MoveTo(float32(poly[0].X), float32(poly[0].Y))
	for _, p := range poly[1:] {
		r.z.LineTo(float32(p.X), float32(p.Y))
	}
	r.z.ClosePath()
	r.pending, r.pendingCol = true, c
}

func (r *Raster) flush() {
	if !r.pending {
		return
	}
	b := r.img.Bounds()
	r.z.Draw(r.img, b, image.NewUniform(r.pendingCol), image.Point{})
	r.z.Reset(b.Dx(), b.Dy())
	r.z.DrawOp = draw.Over
	r.pending, r.pendingCol = false, nil
}

// clipPolygon clips a convex or concave polygon to [0,w]x[0,h]
// (Sutherland-Hodgman).
func clipPolygon(poly []Point, w, h float64) []Point {
	type edge struct {
		inside func(Point) bool
		cross  func(a, b Point) Point
	}
	lerpX := func(a, b Point, x float64) Point {
		t := (x - a.X) / (b.X - a.X)
		return Point{X: x, Y: a.Y + t*(b.Y-a.Y)}
	}
	lerpY := func(a, b Point, y float64) Point {
		t := (y - a.Y) / (b.Y - a.Y)
		return Point{X: a.X + t*(b.X-a.X), Y: y}
	}
	edges := []edge{
		{func(p Point) bool { return p.X >= 0 }, func(a, b Point) Point { return lerpX(a, b, 0) }},
		{func(p Point) bool { return p.X <= w }, func(a, b Point) Point { return lerpX(a, b, w) }},
		{func(p Point) bool { return p.Y >= 0 }, func(a, b Point) Point { return lerpY(a, b, 0) }},
		{func(p Point) bool { return p.Y <= h }, func(a, b Point) Point { return lerpY(a, b, h) }},
	}
	out := poly
	for _, e := range edges {
		if len(out) == 0 {
			return nil
		}
		in := out
		out = make([]Point, 0, len(in)+4)
		prev := in[len(in)-1]
		for _, cur := range in {
			switch {
			case e.inside(cur) && e.inside(prev):
				out = append(out, cur)
			case e.inside(cur):
				out = append(out, e.cross(prev, cur), cur)
			case e.inside(prev):
				out = append(out, e.cross(prev, cur))
			}
			prev = cur
		}
	}
	return out
}
