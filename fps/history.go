package fps

import "sync"

type history struct {
	mu    sync.Mutex
	buf   []int
	idx   int
	count int
}

func newHistory(n int) *history {
	if n < 1 {
		n = 1
	}
	return &history{buf: make([]int, n)}
}

func (h *history) add(v int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf[h.idx] = v
	h.idx = (h.idx + 1) % len(h.buf)
	if h.count < len(h.buf) {
		h.count++
	}
}

type Stats struct {
	Last int
	Min  int
	Max  int
	Avg  float64
	N    int
	// Readings is oldest first.
	Readings []int
}

func (h *history) snapshot() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count == 0 {
		return Stats{}
	}
	st := Stats{N: h.count, Readings: make([]int, h.count)}
	start := (h.idx - h.count + len(h.buf)) % len(h.buf)
	sum := 0
	for i := 0; i < h.count; i++ {
		v := h.buf[(start+i)%len(h.buf)]
		st.Readings[i] = v
		sum += v
		if i == 0 || v < st.Min {
			st.Min = v
		}
		if v > st.Max {
			st.Max = v
		}
	}
	st.Last = st.Readings[h.count-1]
	st.Avg = float64(sum) / float64(h.count)
	return st
}
