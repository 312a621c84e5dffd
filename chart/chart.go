// Package chart holds the draw callbacks for each chart type. Every callback
// clears the whole surface and redraws one Frame.
package chart

import (
	"fmt"
	"strings"

	"github.com/keilerkonzept/streamdash/pipeline"
	"github.com/keilerkonzept/streamdash/render"
	"github.com/keilerkonzept/streamdash/viewport"
	"github.com/keilerkonzept/streamdash/window"
)

type Kind int

const (
	Line Kind = iota
	Scatter
	Bar
	Heatmap
)

var kindNames = [...]string{"line", "scatter", "bar", "heatmap"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

func (k Kind) Next() Kind { return (k + 1) % Kind(len(kindNames)) }

// Zoomable reports whether the chart honours the viewport.
func (k Kind) Zoomable() bool { return k == Line || k == Scatter }

func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Line, nil
	}
	for i, name := range kindNames {
		if s == name {
			return Kind(i), nil
		}
	}
	return Line, fmt.Errorf("unknown chart %q (want line, scatter, bar or heatmap)", s)
}

// Frame is everything a draw callback reads, published as one value so a
// frame never mixes data and viewport from different updates.
type Frame struct {
	Series   []window.Sample
	Heatmap  *pipeline.Heatmap
	Viewport viewport.State
}

// For returns the draw callback of k.
func For(k Kind) render.DrawFunc[Frame] {
	switch k {
	case Scatter:
		return DrawScatter
	case Bar:
		return DrawBar
	case Heatmap:
		return DrawHeatmap
	default:
		return DrawLine
	}
}

// PresenterFor picks braille for strokes and dots, half blocks for fills.
func PresenterFor(k Kind) render.Presenter {
	if k == Bar || k == Heatmap {
		return render.HalfBlock{}
	}
	return render.Braille{}
}

func transform(s render.Surface, vp viewport.State) viewport.Transform {
	w, h := s.Size()
	return viewport.NewTransform(float64(w), float64(h), pipeline.DomainMin, pipeline.DomainSpan, vp)
}
