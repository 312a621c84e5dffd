package chart

import (
	"image/color"
	"math"

	"github.com/keilerkonzept/streamdash/pipeline"
	"github.com/keilerkonzept/streamdash/render"
)

var (
	LineColor    = render.MustHex("#00C49F")
	ScatterColor = render.RGBA(255, 99, 132, 0.7)
	BarColor     = render.MustHex("#FFB900")
	AxisColor    = render.MustHex("#FFFFFF")
	EmptyHeat    = render.MustHex("#0d47a1")
)

const (
	LineWidth     = 2.0
	ScatterRadius = 2.0
	BarPadding    = 2.0
)

func DrawLine(s render.Surface, f Frame) {
	s.Clear(render.Bounds(s))
	n := len(f.Series)
	tr := transform(s, f.Viewport)
	start, end, ok := tr.VisibleRange(n)
	if !ok {
		return
	}
	pts := make([]render.Point, 0, end-start)
	for i := start; i < end; i++ {
		pts = append(pts, render.Point{X: tr.X(i, n), Y: tr.Y(f.Series[i].Value)})
	}
	s.StrokePolyline(pts, LineWidth, LineColor)
}

func DrawScatter(s render.Surface, f Frame) {
	s.Clear(render.Bounds(s))
	n := len(f.Series)
	tr := transform(s, f.Viewport)
	start, end, ok := tr.VisibleRange(n)
	if !ok {
		return
	}
	for i := start; i < end; i++ {
		s.FillCircle(render.Point{X: tr.X(i, n), Y: tr.Y(f.Series[i].Value)}, ScatterRadius, ScatterColor)
	}
}

// barAxisMargin keeps the axis 20px above the bottom of a 400px chart and
// scales with smaller surfaces.
func barAxisMargin(height float64) float64 {
	return math.Min(20, math.Max(1, math.Round(height/20)))
}

// DrawBar draws one bar per point across the full width. It ignores the
// viewport.
func DrawBar(s render.Surface, f Frame) {
	s.Clear(render.Bounds(s))
	w, h := s.Size()
	n := len(f.Series)
	if n == 0 || w == 0 || h == 0 {
		return
	}
	width, height := float64(w), float64(h)
	axisY := height - barAxisMargin(height)
	barWidth := width / float64(n)
	pad := math.Min(BarPadding, barWidth/4)
	for i, p := range f.Series {
		barHeight := (p.Value - pipeline.DomainMin) / pipeline.DomainSpan * axisY
		if barHeight == 0 || barWidth-2*pad <= 0 {
			continue
		}
		s.FillRect(render.Rect{
			X: float64(i)*barWidth + pad,
			Y: axisY - barHeight,
			W: barWidth - 2*pad,
			H: barHeight,
		}, BarColor)
	}
	s.FillRect(render.Rect{X: 0, Y: axisY, W: width, H: 1}, AxisColor)
}

// HeatColor interpolates from blue (no hits) to red (peak). A zero peak
// yields EmptyHeat.
func HeatColor(count, peak int) color.RGBA {
	if peak <= 0 {
		return EmptyHeat
	}
	intensity := math.Min(1, float64(count)/float64(peak))
	return color.RGBA{
		R: uint8(math.Round(255 * intensity)),
		B: uint8(math.Round(255 * (1 - intensity))),
		A: 0xff,
	}
}

// DrawHeatmap lays time buckets left to right and the value ladder bottom to
// top. It ignores the viewport.
func DrawHeatmap(s render.Surface, f Frame) {
	s.Clear(render.Bounds(s))
	w, h := s.Size()
	times := f.Heatmap.TimeBuckets()
	if len(times) == 0 || w == 0 || h == 0 {
		return
	}
	ladder := pipeline.Ladder()
	peak := f.Heatmap.Peak(ladder)
	cellW := float64(w) / float64(len(times))
	cellH := float64(h) / float64(len(ladder))
	for i, tb := range times {
		for j, vb := range ladder {
			s.FillRect(render.Rect{
				X: float64(i) * cellW,
				Y: float64(len(ladder)-1-j) * cellH,
				W: cellW,
				H: cellH,
			}, HeatColor(f.Heatmap.Count(tb, vb), peak))
		}
	}
}
