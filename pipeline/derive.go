package pipeline

import (
	"time"

	"github.com/keilerkonzept/streamdash/window"
)

// Settings are the user-controlled inputs of a derivation.
type Settings struct {
	TimeRange   TimeRange
	ValueRange  ValueRange
	Aggregation Aggregation
	// Heatmap enables the occupancy histogram; it is skipped otherwise.
	Heatmap bool
}

func DefaultSettings() Settings {
	return Settings{
		TimeRange:   Live,
		ValueRange:  DefaultValueRange,
		Aggregation: Realtime{},
	}
}

// View is one derived, read-only picture of a snapshot.
type View struct {
	Seq      uint64
	Settings Settings
	// Series is what line, scatter and bar charts plot.
	Series []window.Sample
	// Points is nil for Realtime.
	Points   []AggregatedPoint
	Heatmap  *Heatmap
	Filtered int
	At       time.Time
}

type Refresh int

const (
	Cached Refresh = iota
	Partial
	Full
)

func (r Refresh) String() string {
	switch r {
	case Partial:
		return "partial"
	case Full:
		return "full"
	}
	return "cached"
}

// Deriver memoises the derived view of a buffer. A view is reused until the
// snapshot or the settings change. Time-bucket sums and heatmap counts are
// updated incrementally from the samples that entered and left the window
// since the previous snapshot, with a full rebuild at least every
// fullRefresh. A time-range filter also forces a full rebuild every
// fullRefresh, since its horizon moves with the clock.
//
// A Deriver is not safe for concurrent use.
type Deriver struct {
	fullRefresh time.Duration

	valid    bool
	settings Settings
	prev     window.Snapshot
	lastFull time.Time

	buckets bucketSet
	cells   cellSet
	view    View
}

// NewDeriver returns a Deriver. A fullRefresh of 0 disables incremental
// updates.
func NewDeriver(fullRefresh time.Duration) *Deriver {
	if fullRefresh < 0 {
		fullRefresh = 0
	}
	return &Deriver{fullRefresh: fullRefresh}
}

func (d *Deriver) Derive(snap window.Snapshot, s Settings, now time.Time) (View, Refresh) {
	if now.IsZero() {
		now = time.Now()
	}
	if s.Aggregation == nil {
		s.Aggregation = Realtime{}
	}
	due := d.fullRefresh == 0 || now.Sub(d.lastFull) >= d.fullRefresh
	unchanged := d.valid && s == d.settings && snap.Seq() == d.prev.Seq()

	switch {
	case unchanged && (s.TimeRange == Live || !due):
		return d.view, Cached
	case !d.valid || s != d.settings || s.TimeRange != Live || due || !d.canPatch(snap):
		d.rebuild(snap, s, now)
		d.lastFull = now
		return d.view, Full
	default:
		d.patch(snap, now)
		return d.view, Partial
	}
}

// canPatch reports whether every sample that entered or left the window
// between d.prev and snap is still observable.
func (d *Deriver) canPatch(snap window.Snapshot) bool {
	if snap.Seq() < d.prev.Seq() {
		return false
	}
	added := snap.Seq() - d.prev.Seq()
	if added > uint64(snap.Len()) {
		return false
	}
	evicted := d.prev.Len() + int(added) - snap.Len()
	return evicted >= 0 && evicted <= d.prev.Len()
}

func (d *Deriver) rebuild(snap window.Snapshot, s Settings, now time.Time) {
	filtered := Filter(snap.Samples(), s.TimeRange, s.ValueRange, now)

	d.buckets, d.cells = nil, nil
	if a, ok := s.Aggregation.(TimeBucketed); ok && a.BucketMs > 0 {
		d.buckets = make(bucketSet)
		for _, x := range filtered {
			d.buckets.add(x, a.BucketMs)
		}
	}
	if s.Heatmap {
		d.cells = make(cellSet, 64)
		for _, x := range filtered {
			d.cells.add(x)
		}
	}
	d.settings = s
	d.prev = snap
	d.valid = true
	d.publish(filtered, len(filtered), now)
}

// patch is only reached for Live, so the value predicate is the only filter.
func (d *Deriver) patch(snap window.Snapshot, now time.Time) {
	s := d.settings
	added := int(snap.Seq() - d.prev.Seq())
	evicted := d.prev.Len() + added - snap.Len()
	gone := d.prev.Samples()[:evicted]
	fresh := snap.Samples()[snap.Len()-added:]

	a, bucketed := s.Aggregation.(TimeBucketed)
	apply := func(xs []window.Sample, add bool) {
		for _, x := range xs {
			if !s.ValueRange.IsDefault() && !s.ValueRange.Contains(x.Value) {
				continue
			}
			if bucketed && d.buckets != nil {
				if add {
					d.buckets.add(x, a.BucketMs)
				} else {
					d.buckets.remove(x, a.BucketMs)
				}
			}
			if d.cells != nil {
				if add {
					d.cells.add(x)
				} else {
					d.cells.remove(x)
				}
			}
		}
	}
	apply(gone, false)
	apply(fresh, true)
	d.prev = snap

	var filtered []window.Sample
	count := -1
	if !bucketed {
		filtered = Filter(snap.Samples(), Live, s.ValueRange, now)
		count = len(filtered)
	}
	d.publish(filtered, count, now)
}

// publish builds a fresh View; count < 0 means derive it from the buckets.
func (d *Deriver) publish(filtered []window.Sample, count int, now time.Time) {
	v := View{
		Seq:      d.prev.Seq(),
		Settings: d.settings,
		At:       now,
	}
	if d.buckets != nil {
		v.Points = d.buckets.points()
		v.Series = toSeries(v.Points)
		if count < 0 {
			count = 0
			for _, p := range v.Points {
				count += p.Count
			}
		}
	} else {
		v.Series = filtered
		if v.Series == nil {
			v.Series = []window.Sample{}
		}
	}
	if d.cells != nil {
		v.Heatmap = d.cells.freeze()
	}
	v.Filtered = max(count, 0)
	d.view = v
}
