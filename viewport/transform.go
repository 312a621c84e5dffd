package viewport

import "math"

// Transform is a State bound to a plotting area and a fixed value domain.
type Transform struct {
	Width      float64
	Height     float64
	DomainMin  float64
	DomainSpan float64
	State      State
}

func NewTransform(width, height, domainMin, domainSpan float64, s State) Transform {
	return Transform{
		Width:      width,
		Height:     height,
		DomainMin:  domainMin,
		DomainSpan: domainSpan,
		State:      s.Clamp(width),
	}
}

func (t Transform) scaledWidth() float64 { return t.Width * t.State.Zoom }

// X is the screen x of index i in a sequence of n points. n must be >= 2.
func (t Transform) X(i, n int) float64 {
	return float64(i)/float64(n-1)*t.scaledWidth() - t.State.PanX
}

// Y maps v so that DomainMin sits on the bottom edge and
// DomainMin+DomainSpan on the top edge.
func (t Transform) Y(v float64) float64 {
	if t.DomainSpan == 0 {
		return t.Height
	}
	return t.Height - (v-t.DomainMin)/t.DomainSpan*t.Height
}

// VisibleRange returns the half-open index range [start, end) of the points
// whose x falls within [-1, Width+1], extended by one neighbour on each side
// so polylines reach the edges. It is computed in constant time. Sequences
// of fewer than two points have nothing to draw.
func (t Transform) VisibleRange(n int) (start, end int, ok bool) {
	if n < 2 || t.Width <= 0 {
		return 0, 0, false
	}
	per := float64(n-1) / t.scaledWidth()
	lo := (t.State.PanX - 1) * per
	hi := (t.State.PanX + t.Width + 1) * per
	start = max(0, int(math.Floor(lo)))
	end = min(n, int(math.Floor(hi))+2)
	if start >= end {
		return 0, 0, false
	}
	return start, end, true
}
