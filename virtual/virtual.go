// Package virtual computes which rows of a long scrollable list have to be
// materialised for the current scroll position.
package virtual

import (
	"math"
	"sync"
)

const DefaultOverscan = 5

// Window is the slice [Start, End) of items to materialise, the offset of
// the first materialised row, and the height of the full list.
type Window struct {
	Start       int
	End         int
	PaddingTop  float64
	TotalHeight float64
}

func (w Window) Len() int { return w.End - w.Start }

// Compute derives the Window for a scroll offset. Heights share one unit
// (pixels, terminal lines). A non-positive itemHeight yields an empty window.
func Compute(scrollTop, containerHeight, itemHeight float64, itemCount, overscan int) Window {
	if itemHeight <= 0 || itemCount <= 0 {
		return Window{}
	}
	overscan = max(0, overscan)
	scrollTop = math.Max(0, scrollTop)
	containerHeight = math.Max(0, containerHeight)

	start := int(math.Floor(scrollTop/itemHeight)) - overscan
	end := int(math.Ceil((scrollTop+containerHeight)/itemHeight)) + overscan
	start = max(0, min(start, itemCount))
	end = max(start, min(itemCount, end))
	return Window{
		Start:       start,
		End:         end,
		PaddingTop:  float64(start) * itemHeight,
		TotalHeight: float64(itemCount) * itemHeight,
	}
}

// Scroller owns the scroll position of one list and notifies listeners with
// the recomputed Window whenever the position, viewport or item count
// changes. Listeners run synchronously on the caller's goroutine.
type Scroller struct {
	mu        sync.Mutex
	itemH     float64
	overscan  int
	top       float64
	height    float64
	count     int
	listeners map[int]func(Window)
	nextID    int
	closed    bool
}

func NewScroller(itemHeight float64, overscan int) *Scroller {
	return &Scroller{
		itemH:     itemHeight,
		overscan:  overscan,
		listeners: make(map[int]func(Window)),
	}
}

// Listen registers fn and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (s *Scroller) Listen(fn func(Window)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Close drops every listener; later updates still move the position but
// notify no one.
func (s *Scroller) Close() {
	s.mu.Lock()
	s.closed = true
	clear(s.listeners)
	s.mu.Unlock()
}

func (s *Scroller) ScrollTo(top float64) Window {
	return s.update(func() { s.top = top })
}

func (s *Scroller) ScrollBy(delta float64) Window {
	return s.update(func() { s.top += delta })
}

// Resize sets the container height and the item count.
func (s *Scroller) Resize(containerHeight float64, itemCount int) Window {
	return s.update(func() {
		s.height = math.Max(0, containerHeight)
		s.count = max(0, itemCount)
	})
}

// ScrollToEnd keeps the last item in view.
func (s *Scroller) ScrollToEnd() Window {
	return s.update(func() { s.top = math.Inf(1) })
}

func (s *Scroller) Top() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.top
}

func (s *Scroller) Window() Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window()
}

// AtEnd reports whether the last item is fully visible.
func (s *Scroller) AtEnd() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.top >= s.maxTop()
}

func (s *Scroller) maxTop() float64 {
	return math.Max(0, float64(s.count)*s.itemH-s.height)
}

func (s *Scroller) window() Window {
	return Compute(s.top, s.height, s.itemH, s.count, s.overscan)
}

func (s *Scroller) update(mut func()) Window {
	s.mu.Lock()
	mut()
	s.top = math.Max(0, math.Min(s.top, s.maxTop()))
	w := s.window()
	fns := make([]func(Window), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(w)
	}
	return w
}

// Thumb sizes a scrollbar thumb for a track of trackLen cells: it returns the
// first cell of the thumb and its length.
func Thumb(w Window, scrollTop, containerHeight float64, trackLen int) (offset, length int) {
	if trackLen <= 0 || w.TotalHeight <= 0 || containerHeight >= w.TotalHeight {
		return 0, max(trackLen, 0)
	}
	length = max(1, int(math.Round(containerHeight/w.TotalHeight*float64(trackLen))))
	travel := w.TotalHeight - containerHeight
	offset = int(math.Round(scrollTop / travel * float64(trackLen-length)))
	offset = max(0, min(offset, trackLen-length))
	return offset, length
}
