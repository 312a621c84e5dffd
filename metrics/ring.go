package metrics

import "time"

type durationRing struct {
	buf   []time.Duration
	idx   int
	count int
}

func newDurationRing(n int) *durationRing {
	if n < 1 {
		n = 1
	}
	return &durationRing{buf: make([]time.Duration, n)}
}

func (r *durationRing) add(d time.Duration) {
	r.buf[r.idx] = d
	r.idx = (r.idx + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// DurationStats summarises the last N observations.
type DurationStats struct {
	Last time.Duration
	Max  time.Duration
	Avg  time.Duration
	N    int
}

func (r *durationRing) snapshot() DurationStats {
	if r.count == 0 {
		return DurationStats{}
	}
	var sum, peak time.Duration
	for _, d := range r.buf[:r.count] {
		sum += d
		peak = max(peak, d)
	}
	lastIdx := r.idx - 1
	if lastIdx < 0 {
		lastIdx = len(r.buf) - 1
	}
	return DurationStats{
		Last: r.buf[lastIdx],
		Max:  peak,
		Avg:  sum / time.Duration(r.count),
		N:    r.count,
	}
}
