// Package fps counts presented frames and reports a smoothed frames-per-second
// figure once per interval.
package fps

import (
	"math"
	"sync/atomic"
	"time"
)

const DefaultInterval = time.Second

type Grade int

const (
	Poor Grade = iota
	Fair
	Good
)

// GradeOf buckets a reading: Good from 55, Fair from 40.
func GradeOf(fps int) Grade {
	switch {
	case fps >= 55:
		return Good
	case fps >= 40:
		return Fair
	}
	return Poor
}

// Monitor is fed once per frame by the presentation loop. Tick must be
// called from a single goroutine; FPS, History and Reports may be read from
// anywhere. A reader that falls behind only misses intermediate reports.
type Monitor struct {
	interval time.Duration
	frames   int
	last     time.Time

	fps     atomic.Int64
	reports chan int
	history *history
}

func New(interval time.Duration, historyLen int) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		interval: interval,
		reports:  make(chan int, 1),
		history:  newHistory(historyLen),
	}
}

// Tick counts one frame presented at now. Once more than the interval has
// elapsed since the previous report it computes a new reading, resets the
// counter and returns the reading with reported set.
func (m *Monitor) Tick(now time.Time) (fps int, reported bool) {
	if m.last.IsZero() {
		m.last = now
		return int(m.fps.Load()), false
	}
	m.frames++
	elapsed := now.Sub(m.last)
	if elapsed <= m.interval {
		return int(m.fps.Load()), false
	}
	fps = int(math.Round(float64(m.frames) * float64(time.Second) / float64(elapsed)))
	m.frames = 0
	m.last = now
	m.fps.Store(int64(fps))
	m.history.add(fps)
	m.publish(fps)
	return fps, true
}

func (m *Monitor) publish(fps int) {
	select {
	case <-m.reports:
	default:
	}
	select {
	case m.reports <- fps:
	default:
	}
}

// FPS is the latest reading, 0 before the first report.
func (m *Monitor) FPS() int { return int(m.fps.Load()) }

// Reports delivers readings as they are made; only the newest unread one is
// kept.
func (m *Monitor) Reports() <-chan int { return m.reports }

func (m *Monitor) History() Stats { return m.history.snapshot() }

// Reset forgets the in-progress interval, e.g. after the loop was paused.
func (m *Monitor) Reset() {
	m.frames = 0
	m.last = time.Time{}
}
