package pipeline

import (
	"math"
	"slices"

	"github.com/samber/lo"

	"github.com/keilerkonzept/streamdash/window"
)

const (
	HeatmapTimeBucketMs = 10_000
	HeatmapValueBucket  = 10.0
	ladderSteps         = 11
)

// Cell addresses one (time bucket, value bucket) pair of a Heatmap.
type Cell struct {
	TimeBucket  int64
	ValueBucket int64
}

func CellOf(s window.Sample) Cell {
	return Cell{
		TimeBucket:  BucketStart(s.Timestamp, HeatmapTimeBucketMs),
		ValueBucket: ValueBucketOf(s.Value),
	}
}

func ValueBucketOf(v float64) int64 {
	return int64(math.Floor(v/HeatmapValueBucket)) * int64(HeatmapValueBucket)
}

// Ladder is the fixed set of value buckets that gets visualised, lowest first.
// Buckets outside it are still counted.
func Ladder() []int64 {
	out := make([]int64, ladderSteps)
	for i := range out {
		out[i] = int64(DomainMin) + int64(i)*int64(HeatmapValueBucket)
	}
	return out
}

// Heatmap is a sparse occupancy histogram. Missing cells count zero. A nil
// *Heatmap is an empty histogram.
type Heatmap struct {
	counts map[Cell]int
	total  int
}

func BuildHeatmap(samples []window.Sample) *Heatmap {
	h := &Heatmap{counts: make(map[Cell]int)}
	for _, s := range samples {
		h.counts[CellOf(s)]++
	}
	h.total = len(samples)
	return h
}

func (h *Heatmap) Count(timeBucket, valueBucket int64) int {
	if h == nil {
		return 0
	}
	return h.counts[Cell{TimeBucket: timeBucket, ValueBucket: valueBucket}]
}

// Total is the number of samples counted, inside the ladder or not.
func (h *Heatmap) Total() int {
	if h == nil {
		return 0
	}
	return h.total
}

// Cells is the number of non-empty cells.
func (h *Heatmap) Cells() int {
	if h == nil {
		return 0
	}
	return len(h.counts)
}

// TimeBuckets returns the distinct time buckets in ascending order.
func (h *Heatmap) TimeBuckets() []int64 {
	if h == nil {
		return nil
	}
	seen := make(map[int64]struct{})
	for c := range h.counts {
		seen[c.TimeBucket] = struct{}{}
	}
	keys := lo.Keys(seen)
	slices.Sort(keys)
	return keys
}

// Peak is the highest count among the cells on the given ladder.
func (h *Heatmap) Peak(ladder []int64) int {
	if h == nil {
		return 0
	}
	on := lo.SliceToMap(ladder, func(v int64) (int64, struct{}) { return v, struct{}{} })
	peak := 0
	for c, n := range h.counts {
		if _, ok := on[c.ValueBucket]; ok && n > peak {
			peak = n
		}
	}
	return peak
}

// cellSet is the mutable accumulator behind incremental heatmap updates.
type cellSet map[Cell]int

func (c cellSet) add(s window.Sample) { c[CellOf(s)]++ }

func (c cellSet) remove(s window.Sample) {
	k := CellOf(s)
	if c[k] <= 1 {
		delete(c, k)
		return
	}
	c[k]--
}

// freeze copies the accumulator into a Heatmap that readers may keep.
func (c cellSet) freeze() *Heatmap {
	h := &Heatmap{counts: make(map[Cell]int, len(c))}
	for k, n := range c {
		h.counts[k] = n
		h.total += n
	}
	return h
}
