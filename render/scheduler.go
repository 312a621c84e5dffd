package render

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrStopped  = errors.New("render loop stopped")
	ErrReplaced = errors.New("render loop replaced")
)

// Latest is a single-slot cell holding the most recent value published by a
// writer. Readers always see a whole value, never a mix of two Stores.
type Latest[T any] struct {
	p       atomic.Pointer[T]
	version atomic.Uint64
}

func (l *Latest[T]) Store(v T) {
	l.p.Store(&v)
	l.version.Add(1)
}

func (l *Latest[T]) Load() (T, bool) {
	p := l.p.Load()
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}

// Version counts Stores.
func (l *Latest[T]) Version() uint64 { return l.version.Load() }

// DrawFunc performs a full clear-and-redraw of s for view v.
type DrawFunc[T any] func(s Surface, v T)

// Scheduler drives a draw callback once per presented frame. Each frame it
// reads whatever value the Latest cell holds at that moment, so publishing
// new values never restarts or duplicates the loop.
//
// Every call to Replace starts a new generation; frames of older generations
// are refused, which is how a host's self re-arming frame callback dies out.
// After Stop no draw call starts, and Stop waits for one in progress.
type Scheduler[T any] struct {
	latest *Latest[T]

	mu      sync.Mutex
	surface Surface
	draw    DrawFunc[T]
	gen     uint64
	stopped bool

	drawing sync.Mutex
	frames  atomic.Uint64
}

func NewScheduler[T any](latest *Latest[T], surface Surface) *Scheduler[T] {
	return &Scheduler[T]{latest: latest, surface: surface}
}

// Replace installs draw and returns the generation a host loop must pass to
// Frame.
func (s *Scheduler[T]) Replace(draw DrawFunc[T]) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.draw = draw
	return s.gen
}

// SetSurface swaps the target, e.g. after a resize. The next frame draws on
// the new surface.
func (s *Scheduler[T]) SetSurface(sf Surface) {
	s.mu.Lock()
	s.surface = sf
	s.mu.Unlock()
}

func (s *Scheduler[T]) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Frame is the host's per-frame callback. It draws the latest value and
// reports whether the host should request another frame for gen.
func (s *Scheduler[T]) Frame(gen uint64, _ time.Time) bool {
	s.drawing.Lock()
	defer s.drawing.Unlock()

	s.mu.Lock()
	if s.stopped || gen != s.gen || s.draw == nil || s.surface == nil {
		s.mu.Unlock()
		return false
	}
	draw, surface := s.draw, s.surface
	s.mu.Unlock()

	if v, ok := s.latest.Load(); ok {
		draw(surface, v)
	} else {
		surface.Clear(Bounds(surface))
	}
	s.frames.Add(1)
	return true
}

// Run presents one frame per tick until ctx ends, ticks closes, the loop is
// stopped or another Replace supersedes the generation current at entry.
func (s *Scheduler[T]) Run(ctx context.Context, ticks <-chan time.Time) error {
	gen := s.Generation()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now, ok := <-ticks:
			if !ok {
				return nil
			}
			if !s.Frame(gen, now) {
				if s.Stopped() {
					return ErrStopped
				}
				return ErrReplaced
			}
		}
	}
}

// Stop cancels the loop for good.
func (s *Scheduler[T]) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.drawing.Lock()
	s.drawing.Unlock()
}

func (s *Scheduler[T]) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Frames counts drawn frames across generations.
func (s *Scheduler[T]) Frames() uint64 { return s.frames.Load() }
