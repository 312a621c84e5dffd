package pipeline

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/keilerkonzept/streamdash/window"
)

// Aggregation selects how the filtered sequence becomes a chart series.
// It is either Realtime or TimeBucketed.
type Aggregation interface {
	fmt.Stringer
	aggregation()
}

// Realtime passes the filtered sequence through unchanged.
type Realtime struct{}

// TimeBucketed averages samples over fixed-width time buckets.
type TimeBucketed struct {
	BucketMs int64
}

func (Realtime) aggregation()     {}
func (TimeBucketed) aggregation() {}

func (Realtime) String() string { return "realtime" }

func (a TimeBucketed) String() string { return fmt.Sprintf("%ds", a.BucketMs/1000) }

var (
	TenSecondAverage    = TimeBucketed{BucketMs: 10_000}
	ThirtySecondAverage = TimeBucketed{BucketMs: 30_000}
)

func ParseAggregation(s string) (Aggregation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "realtime", "raw":
		return Realtime{}, nil
	case "10s", "10sec":
		return TenSecondAverage, nil
	case "30s", "30sec":
		return ThirtySecondAverage, nil
	}
	return Realtime{}, fmt.Errorf("unknown aggregation %q (want realtime, 10s or 30s)", s)
}

// NextAggregation cycles realtime -> 10s -> 30s -> realtime.
func NextAggregation(a Aggregation) Aggregation {
	switch a {
	case Realtime{}:
		return TenSecondAverage
	case TenSecondAverage:
		return ThirtySecondAverage
	}
	return Realtime{}
}

// AggregatedPoint is the mean of the Count samples whose timestamps fall in
// [Timestamp, Timestamp+bucket).
type AggregatedPoint struct {
	Timestamp int64
	Value     float64
	Count     int
}

func (p AggregatedPoint) Sample() window.Sample {
	return window.Sample{Timestamp: p.Timestamp, Value: p.Value}
}

// BucketStart floors ts to a multiple of size, also for negative timestamps.
func BucketStart(ts, size int64) int64 {
	q := ts / size
	if ts%size != 0 && ts < 0 {
		q--
	}
	return q * size
}

type bucketAcc struct {
	sum   float64
	count int
}

type bucketSet map[int64]*bucketAcc

func (b bucketSet) add(s window.Sample, size int64) {
	k := BucketStart(s.Timestamp, size)
	acc, ok := b[k]
	if !ok {
		acc = &bucketAcc{}
		b[k] = acc
	}
	acc.sum += s.Value
	acc.count++
}

func (b bucketSet) remove(s window.Sample, size int64) {
	k := BucketStart(s.Timestamp, size)
	acc, ok := b[k]
	if !ok {
		return
	}
	acc.sum -= s.Value
	acc.count--
	if acc.count <= 0 {
		delete(b, k)
	}
}

// points emits one point per non-empty bucket, ordered by bucket start.
func (b bucketSet) points() []AggregatedPoint {
	keys := lo.Keys(b)
	slices.Sort(keys)
	out := make([]AggregatedPoint, len(keys))
	for i, k := range keys {
		acc := b[k]
		out[i] = AggregatedPoint{Timestamp: k, Value: acc.sum / float64(acc.count), Count: acc.count}
	}
	return out
}

// BucketAverage groups samples into buckets of bucketMs and averages each.
func BucketAverage(samples []window.Sample, bucketMs int64) []AggregatedPoint {
	if len(samples) == 0 || bucketMs <= 0 {
		return []AggregatedPoint{}
	}
	b := make(bucketSet)
	for _, s := range samples {
		b.add(s, bucketMs)
	}
	return b.points()
}

// Apply turns a filtered sequence into the series a chart plots. For
// Realtime the input is returned unchanged and points is nil.
func Apply(samples []window.Sample, agg Aggregation) (series []window.Sample, points []AggregatedPoint) {
	switch a := agg.(type) {
	case TimeBucketed:
		points = BucketAverage(samples, a.BucketMs)
		return toSeries(points), points
	default:
		return samples, nil
	}
}

func toSeries(points []AggregatedPoint) []window.Sample {
	return lo.Map(points, func(p AggregatedPoint, _ int) window.Sample { return p.Sample() })
}
