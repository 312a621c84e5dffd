package pipeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/keilerkonzept/topk/heap"
	"github.com/keilerkonzept/topk/sliding"

	"github.com/keilerkonzept/streamdash/window"
)

// Band is a 10-unit value band and how often it was hit inside the tracker's
// sliding window.
type Band struct {
	Label string
	Count uint32
}

func BandLabel(v float64) string {
	lo := ValueBucketOf(v)
	return fmt.Sprintf("%d-%d", lo, lo+int64(HeatmapValueBucket))
}

type BandConfig struct {
	K           int
	Window      time.Duration
	Tick        time.Duration
	FullRefresh time.Duration
	// PartialSize caps how many ranked bands are recounted between full
	// refreshes; 0 recounts all of them.
	PartialSize int
}

func DefaultBandConfig() BandConfig {
	return BandConfig{
		K:           5,
		Window:      time.Minute,
		Tick:        time.Second,
		FullRefresh: 2 * time.Second,
	}
}

// BandTracker ranks the most frequent value bands over a sliding time window
// using a sliding top-K sketch. Time advances with sample timestamps. The
// ranking is rebuilt from the sketch every FullRefresh; in between only the
// counts of already ranked bands are refreshed and re-sorted.
type BandTracker struct {
	cfg    BandConfig
	sketch *sliding.Sketch

	lastTick time.Time
	lastFull time.Time
	items    []heap.Item
}

func NewBandTracker(cfg BandConfig) *BandTracker {
	def := DefaultBandConfig()
	if cfg.K < 1 {
		cfg.K = def.K
	}
	if cfg.Tick <= 0 {
		cfg.Tick = def.Tick
	}
	if cfg.Window < cfg.Tick {
		cfg.Window = max(def.Window, cfg.Tick)
	}
	if cfg.FullRefresh < 0 {
		cfg.FullRefresh = def.FullRefresh
	}
	if cfg.PartialSize < 0 {
		cfg.PartialSize = 0
	}
	return &BandTracker{
		cfg: cfg,
		sketch: sliding.New(cfg.K, int(cfg.Window/cfg.Tick),
			sliding.WithWidth(256),
			sliding.WithDepth(3),
		),
	}
}

func (t *BandTracker) Observe(s window.Sample) {
	t.advance(s.Time())
	t.sketch.Incr(BandLabel(s.Value))
}

func (t *BandTracker) advance(at time.Time) {
	at = at.Truncate(t.cfg.Tick)
	if t.lastTick.IsZero() {
		t.lastTick = at
		return
	}
	if ticks := int(at.Sub(t.lastTick) / t.cfg.Tick); ticks > 0 {
		t.sketch.Ticks(ticks)
		t.lastTick = at
	}
}

// Top returns the ranked bands, most frequent first.
func (t *BandTracker) Top(now time.Time) []Band {
	if now.IsZero() {
		now = time.Now()
	}
	full := len(t.items) == 0 || t.cfg.FullRefresh == 0 || now.Sub(t.lastFull) >= t.cfg.FullRefresh
	limit := len(t.items)
	if full {
		t.items = t.sketch.SortedSlice()
		if len(t.items) > t.cfg.K {
			t.items = t.items[:t.cfg.K]
		}
		t.lastFull = now
		limit = len(t.items)
	} else if t.cfg.PartialSize > 0 && t.cfg.PartialSize < limit {
		limit = t.cfg.PartialSize
	}

	// Heap counts lag behind expired ticks, so recount from the buckets.
	for i := 0; i < limit; i++ {
		t.items[i].Count = t.sketch.Count(t.items[i].Item)
	}
	sort.SliceStable(t.items[:limit], func(i, j int) bool {
		a, b := t.items[i], t.items[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Item < b.Item
	})

	out := make([]Band, 0, len(t.items))
	for _, it := range t.items {
		if it.Count == 0 {
			continue
		}
		out = append(out, Band{Label: it.Item, Count: it.Count})
	}
	return out
}
