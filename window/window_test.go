package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func values(s Snapshot) []float64 {
	out := make([]float64, s.Len())
	for i := range out {
		out[i] = s.At(i).Value
	}
	return out
}

func TestAppendEvictsOldest(t *testing.T) {
	b := NewBuffer(3)
	var snap Snapshot
	for i, v := range []float64{1, 2, 3, 4} {
		snap = b.Append(Sample{Timestamp: int64(i), Value: v})
	}
	assert.Equal(t, []float64{2, 3, 4}, values(snap))
	assert.Equal(t, uint64(4), snap.Seq())
	latest, ok := snap.Latest()
	require.True(t, ok)
	assert.Equal(t, 4.0, latest.Value)
}

func TestBoundedWindow(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		appends  int
	}{
		{name: "under capacity", capacity: 10, appends: 7},
		{name: "exactly full", capacity: 10, appends: 10},
		{name: "one past", capacity: 10, appends: 11},
		{name: "many wraps", capacity: 10, appends: 95},
		{name: "capacity one", capacity: 1, appends: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuffer(tt.capacity)
			for i := 0; i < tt.appends; i++ {
				b.Append(Sample{Timestamp: int64(i), Value: float64(i)})
				require.LessOrEqual(t, b.Len(), tt.capacity)
			}
			snap := b.Snapshot()
			want := min(tt.capacity, tt.appends)
			require.Equal(t, want, snap.Len())
			for i := 0; i < snap.Len(); i++ {
				assert.Equal(t, int64(tt.appends-want+i), snap.At(i).Timestamp)
			}
		})
	}
}

func TestSnapshotsAreNeverMutated(t *testing.T) {
	b := NewBuffer(4)
	var held []Snapshot
	var want [][]float64
	for i := 0; i < 40; i++ {
		s := b.Append(Sample{Timestamp: int64(i), Value: float64(i)})
		held = append(held, s)
		want = append(want, values(s))
	}
	for i, s := range held {
		assert.Equal(t, want[i], values(s), "snapshot %d changed after later appends", i)
	}
}

func TestEmptySnapshot(t *testing.T) {
	var s Snapshot
	assert.Equal(t, 0, s.Len())
	_, ok := s.Latest()
	assert.False(t, ok)
	assert.Empty(t, NewBuffer(5).Snapshot().Samples())
}

func TestZeroCapacityUsesDefault(t *testing.T) {
	assert.Equal(t, DefaultCapacity, NewBuffer(0).Capacity())
}
