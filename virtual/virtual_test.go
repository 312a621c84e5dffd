package virtual

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeScenario(t *testing.T) {
	w := Compute(3000, 400, 30, 10000, 5)
	assert.Equal(t, Window{Start: 95, End: 119, PaddingTop: 2850, TotalHeight: 300000}, w)
}

func TestComputeEdges(t *testing.T) {
	tests := []struct {
		name string
		got  Window
		want Window
	}{
		{
			name: "top of list",
			got:  Compute(0, 400, 30, 10000, 5),
			want: Window{Start: 0, End: 19, PaddingTop: 0, TotalHeight: 300000},
		},
		{
			name: "bottom of list",
			got:  Compute(299600, 400, 30, 10000, 5),
			want: Window{Start: 9981, End: 10000, PaddingTop: 299430, TotalHeight: 300000},
		},
		{
			name: "short list",
			got:  Compute(0, 400, 30, 3, 5),
			want: Window{Start: 0, End: 3, PaddingTop: 0, TotalHeight: 90},
		},
		{
			name: "empty list",
			got:  Compute(120, 400, 30, 0, 5),
			want: Window{},
		},
		{
			name: "zero item height",
			got:  Compute(120, 400, 0, 10, 5),
			want: Window{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestComputeCoversVisibleItems(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 2000; i++ {
		itemH := 1 + rng.Float64()*50
		count := rng.Intn(5000)
		container := rng.Float64() * 1000
		total := float64(count) * itemH
		top := rng.Float64() * math.Max(total, 1)
		overscan := rng.Intn(8)

		w := Compute(top, container, itemH, count, overscan)
		require.Equal(t, total, w.TotalHeight)
		require.Equal(t, float64(w.Start)*itemH, w.PaddingTop)

		first := int(math.Floor(top / itemH))
		last := int(math.Ceil((top+container)/itemH)) - 1
		for j := max(first, 0); j <= min(last, count-1); j++ {
			itemTop, itemBottom := float64(j)*itemH, float64(j+1)*itemH
			if itemBottom < top || itemTop > top+container {
				continue
			}
			require.True(t, j >= w.Start && j < w.End, "item %d outside [%d,%d)", j, w.Start, w.End)
		}
	}
}

func TestScrollerClampsAndNotifies(t *testing.T) {
	s := NewScroller(1, 2)
	var seen []Window
	cancel := s.Listen(func(w Window) { seen = append(seen, w) })

	s.Resize(10, 100)
	w := s.ScrollTo(500)
	assert.Equal(t, 90.0, s.Top())
	assert.Equal(t, 100, w.End)
	assert.True(t, s.AtEnd())

	s.ScrollBy(-1000)
	assert.Equal(t, 0.0, s.Top())
	require.Len(t, seen, 3)

	cancel()
	cancel()
	s.ScrollTo(5)
	assert.Len(t, seen, 3, "no callbacks after cancel")
}

func TestScrollerClose(t *testing.T) {
	s := NewScroller(1, 0)
	calls := 0
	s.Listen(func(Window) { calls++ })
	s.Close()
	s.Resize(10, 100)
	s.Listen(func(Window) { calls++ })
	s.ScrollToEnd()
	assert.Zero(t, calls)
	assert.Equal(t, 90.0, s.Top())
}

func TestThumb(t *testing.T) {
	w := Compute(0, 10, 1, 100, 0)
	off, n := Thumb(w, 0, 10, 10)
	assert.Equal(t, 0, off)
	assert.Equal(t, 1, n)

	off, _ = Thumb(w, 90, 10, 10)
	assert.Equal(t, 9, off)

	off, n = Thumb(Compute(0, 10, 1, 5, 0), 0, 10, 10)
	assert.Equal(t, 0, off)
	assert.Equal(t, 10, n)
}
