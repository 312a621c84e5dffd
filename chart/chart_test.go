package chart

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keilerkonzept/streamdash/pipeline"
	"github.com/keilerkonzept/streamdash/render"
	"github.com/keilerkonzept/streamdash/render/rendertest"
	"github.com/keilerkonzept/streamdash/viewport"
	"github.com/keilerkonzept/streamdash/window"
)

func series(values ...float64) []window.Sample {
	out := make([]window.Sample, len(values))
	for i, v := range values {
		out[i] = window.Sample{Timestamp: int64(i) * 100, Value: v}
	}
	return out
}

func TestKind(t *testing.T) {
	for _, k := range []Kind{Line, Scatter, Bar, Heatmap} {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("pie")
	assert.Error(t, err)

	assert.Equal(t, Scatter, Line.Next())
	assert.Equal(t, Line, Heatmap.Next())
	assert.True(t, Line.Zoomable())
	assert.False(t, Bar.Zoomable())
}

func TestPresenterFor(t *testing.T) {
	assert.IsType(t, render.Braille{}, PresenterFor(Line))
	assert.IsType(t, render.Braille{}, PresenterFor(Scatter))
	assert.IsType(t, render.HalfBlock{}, PresenterFor(Bar))
	assert.IsType(t, render.HalfBlock{}, PresenterFor(Heatmap))
}

func TestDrawLine(t *testing.T) {
	rec := &rendertest.Recorder{W: 100, H: 50}
	DrawLine(rec, Frame{Series: series(50, 100, 150), Viewport: viewport.Initial()})

	require.Len(t, rec.Ops, 2)
	assert.Equal(t, rendertest.OpClear, rec.Ops[0].Kind)
	assert.Equal(t, render.Rect{W: 100, H: 50}, rec.Ops[0].Rect)

	line := rec.Ops[1]
	assert.Equal(t, rendertest.OpPolyline, line.Kind)
	assert.Equal(t, LineWidth, line.Width)
	assert.Equal(t, LineColor, line.Color)
	assert.Equal(t, []render.Point{{X: 0, Y: 50}, {X: 50, Y: 25}, {X: 100, Y: 0}}, line.Points)
}

func TestDrawLineTooFewPoints(t *testing.T) {
	for _, s := range [][]window.Sample{nil, series(100)} {
		rec := &rendertest.Recorder{W: 100, H: 50}
		DrawLine(rec, Frame{Series: s, Viewport: viewport.Initial()})
		require.Len(t, rec.Ops, 1)
		assert.Equal(t, rendertest.OpClear, rec.Ops[0].Kind)
	}
}

func TestDrawLineZoomedOnlyVisible(t *testing.T) {
	values := make([]float64, 10000)
	for i := range values {
		values[i] = 100
	}
	vp := viewport.State{Zoom: 10, PanX: 450}
	rec := &rendertest.Recorder{W: 100, H: 50}
	DrawLine(rec, Frame{Series: series(values...), Viewport: vp})

	require.Len(t, rec.Ops, 2)
	pts := rec.Ops[1].Points
	assert.Less(t, len(pts), 1100)
	assert.LessOrEqual(t, pts[0].X, 0.0)
	assert.GreaterOrEqual(t, pts[len(pts)-1].X, 100.0)
}

func TestDrawScatter(t *testing.T) {
	rec := &rendertest.Recorder{W: 100, H: 50}
	DrawScatter(rec, Frame{Series: series(60, 70, 80, 90), Viewport: viewport.Initial()})

	assert.Equal(t, 1, rec.Count(rendertest.OpClear))
	assert.Equal(t, 4, rec.Count(rendertest.OpCircle))
	for _, op := range rec.Ops[1:] {
		assert.Equal(t, ScatterRadius, op.Radius)
		assert.Equal(t, ScatterColor, op.Color)
	}
}

func TestDrawBar(t *testing.T) {
	rec := &rendertest.Recorder{W: 400, H: 400}
	DrawBar(rec, Frame{Series: series(150, 100, 50, 125)})

	// The bar at the domain minimum has no height.
	assert.Equal(t, 1, rec.Count(rendertest.OpClear))
	require.Equal(t, 4, rec.Count(rendertest.OpRect))

	full := rec.Ops[1].Rect
	assert.Equal(t, render.Rect{X: 2, Y: 0, W: 96, H: 380}, full)
	half := rec.Ops[2].Rect
	assert.Equal(t, render.Rect{X: 102, Y: 190, W: 96, H: 190}, half)

	axis := rec.Ops[len(rec.Ops)-1]
	assert.Equal(t, AxisColor, axis.Color)
	assert.Equal(t, 380.0, axis.Rect.Y)
}

func TestDrawBarEmpty(t *testing.T) {
	rec := &rendertest.Recorder{W: 40, H: 20}
	DrawBar(rec, Frame{})
	assert.Len(t, rec.Ops, 1)
}

func TestHeatColor(t *testing.T) {
	assert.Equal(t, EmptyHeat, HeatColor(0, 0))
	assert.Equal(t, color.RGBA{B: 255, A: 255}, HeatColor(0, 4))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, HeatColor(4, 4))
	assert.Equal(t, color.RGBA{R: 128, B: 128, A: 255}, HeatColor(2, 4))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, HeatColor(9, 4))
}

func TestDrawHeatmap(t *testing.T) {
	samples := []window.Sample{
		{Timestamp: 1000, Value: 55},
		{Timestamp: 2000, Value: 55},
		{Timestamp: 12000, Value: 145},
	}
	rec := &rendertest.Recorder{W: 20, H: 22}
	DrawHeatmap(rec, Frame{Heatmap: pipeline.BuildHeatmap(samples)})

	ladder := pipeline.Ladder()
	require.Equal(t, 2*len(ladder), rec.Count(rendertest.OpRect))

	// First column, lowest ladder step, sits at the bottom and is the peak.
	bottom := rec.Ops[1]
	assert.Equal(t, render.Rect{X: 0, Y: 20, W: 10, H: 2}, bottom.Rect)
	assert.Equal(t, HeatColor(2, 2), bottom.Color)

	// Second column, value bucket 140, holds half the peak.
	top := rec.Ops[1+len(ladder)+9]
	assert.Equal(t, render.Rect{X: 10, Y: 2, W: 10, H: 2}, top.Rect)
	assert.Equal(t, HeatColor(1, 2), top.Color)
}

func TestDrawHeatmapOffLadder(t *testing.T) {
	rec := &rendertest.Recorder{W: 10, H: 11}
	DrawHeatmap(rec, Frame{Heatmap: pipeline.BuildHeatmap(series(500))})
	for _, op := range rec.Ops[1:] {
		assert.Equal(t, EmptyHeat, op.Color)
	}
}

func TestDrawHeatmapNil(t *testing.T) {
	rec := &rendertest.Recorder{W: 10, H: 11}
	DrawHeatmap(rec, Frame{})
	assert.Len(t, rec.Ops, 1)
}

func TestForDrawsOnRaster(t *testing.T) {
	f := Frame{Series: series(60, 140, 80, 120), Heatmap: pipeline.BuildHeatmap(series(60, 140)), Viewport: viewport.Initial()}
	for _, k := range []Kind{Line, Scatter, Bar, Heatmap} {
		r := render.NewRaster(40, 20)
		For(k)(r, f)
		out := PresenterFor(k).Present(r.Image(), 20, 5)
		assert.NotEmpty(t, out, k.String())
	}
}

func constant(n int, v float64) []window.Sample {
	out := make([]window.Sample, n)
	for i := range out {
		out[i] = window.Sample{Timestamp: int64(i) * 100, Value: v}
	}
	return out
}

// inkedColumns counts the columns of row y with any coverage.
func inkedColumns(r *render.Raster, y int) int {
	img := r.Image()
	n := 0
	for x := range img.Bounds().Dx() {
		if img.RGBAAt(x, y).A > 0 {
			n++
		}
	}
	return n
}

func TestDrawDenseSeriesOnRaster(t *testing.T) {
	// A full window is far denser than the raster: 100 points per column.
	f := Frame{Series: constant(10_000, 120), Viewport: viewport.Initial()}
	for _, tc := range []struct {
		kind Kind
		row  int
	}{
		// Y(120) on a 40px surface is 12.
		{kind: Line, row: 12},
		{kind: Scatter, row: 12},
		// Bars reach from the axis at 38 up to 11.4.
		{kind: Bar, row: 20},
	} {
		t.Run(tc.kind.String(), func(t *testing.T) {
			r := render.NewRaster(100, 40)
			For(tc.kind)(r, f)
			assert.Equal(t, 100, inkedColumns(r, tc.row))
			assert.Zero(t, inkedColumns(r, 2), "nothing above the series")
		})
	}
}

func TestDrawBarDenseKeepsHeight(t *testing.T) {
	r := render.NewRaster(100, 40)
	vals := constant(1_000, 60)
	for i := range vals[500:] {
		vals[500+i].Value = 140
	}
	DrawBar(r, Frame{Series: vals})
	img := r.Image()

	// Bars of 60 reach y=34.2, bars of 140 reach y=3.8.
	assert.Zero(t, img.RGBAAt(10, 20).A)
	assert.NotZero(t, img.RGBAAt(10, 36).A)
	assert.NotZero(t, img.RGBAAt(90, 20).A)
	assert.Equal(t, AxisColor, img.RGBAAt(50, 38))
}
