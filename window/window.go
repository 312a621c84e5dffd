// Package window holds the bounded, most-recent-N view of an unbounded sample
// stream.
package window

import "time"

// DefaultCapacity is the number of samples kept when no capacity is configured.
const DefaultCapacity = 10000

// Sample is a single (timestamp, value) observation. Timestamp is in
// milliseconds since the Unix epoch.
type Sample struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

func (s Sample) Time() time.Time { return time.UnixMilli(s.Timestamp) }

// Buffer is a fixed-capacity FIFO of samples. Appends never touch memory that
// is visible through a previously returned Snapshot: the live range slides
// forward inside a backing array twice the capacity, and when it reaches the
// end the tail is copied into a fresh array.
//
// A Buffer is owned by a single writer and is not safe for concurrent use.
// Snapshots are safe to share with any number of readers.
type Buffer struct {
	capacity int
	backing  []Sample
	start    int
	end      int
	seq      uint64
}

func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		capacity: capacity,
		backing:  make([]Sample, 2*capacity),
	}
}

func (b *Buffer) Capacity() int { return b.capacity }

func (b *Buffer) Len() int { return b.end - b.start }

// Append adds s as the newest sample, evicting the oldest one first when the
// buffer is full, and returns the resulting snapshot.
func (b *Buffer) Append(s Sample) Snapshot {
	if b.end == len(b.backing) {
		keep := min(b.end-b.start, b.capacity-1)
		next := make([]Sample, len(b.backing))
		copy(next, b.backing[b.end-keep:b.end])
		b.backing, b.start, b.end = next, 0, keep
	}
	b.backing[b.end] = s
	b.end++
	if b.end-b.start > b.capacity {
		b.start = b.end - b.capacity
	}
	b.seq++
	return b.Snapshot()
}

// Snapshot returns the current contents without copying.
func (b *Buffer) Snapshot() Snapshot {
	return Snapshot{
		samples:  b.backing[b.start:b.end:b.end],
		seq:      b.seq,
		capacity: b.capacity,
	}
}

// Snapshot is an immutable, oldest-first view of a Buffer at one point in time.
// The zero value is an empty snapshot.
type Snapshot struct {
	samples  []Sample
	seq      uint64
	capacity int
}

func (s Snapshot) Len() int { return len(s.samples) }

func (s Snapshot) At(i int) Sample { return s.samples[i] }

// Samples exposes the underlying slice. Callers must treat it as read-only.
func (s Snapshot) Samples() []Sample { return s.samples }

// Seq is the number of appends the owning buffer had seen when the snapshot
// was taken. Two snapshots of one buffer with equal Seq hold equal samples.
func (s Snapshot) Seq() uint64 { return s.seq }

func (s Snapshot) Capacity() int { return s.capacity }

func (s Snapshot) Latest() (Sample, bool) {
	if len(s.samples) == 0 {
		return Sample{}, false
	}
	return s.samples[len(s.samples)-1], true
}
