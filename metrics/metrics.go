// Package metrics counts what flows through the dashboard. The same numbers
// feed the in-terminal stats block and a Prometheus endpoint.
package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keilerkonzept/streamdash/pipeline"
)

const namespace = "streamdash"

type Metrics struct {
	startedNs     atomic.Int64
	ingested      atomic.Uint64
	firstIngestNs atomic.Int64
	lastIngestNs  atomic.Int64
	lastSampleMs  atomic.Int64
	dropped       atomic.Uint64
	reconnects    atomic.Uint64
	frames        atomic.Uint64
	fps           atomic.Int64

	mu         sync.Mutex
	derive     *durationRing
	refreshes  [3]uint64
	registry   *prometheus.Registry
	promIngest prometheus.Counter
	promDrop   prometheus.Counter
	promReconn prometheus.Counter
	promFrames prometheus.Counter
	promFPS    prometheus.Gauge
	promWindow prometheus.Gauge
	promDerive *prometheus.HistogramVec
}

// New keeps derive latencies of the last window derivations.
func New(window int) *Metrics {
	m := &Metrics{
		derive:   newDurationRing(window),
		registry: prometheus.NewRegistry(),
		promIngest: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_ingested_total",
			Help:      "Samples appended to the window.",
		}),
		promDrop: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payloads_dropped_total",
			Help:      "Events dropped because their payload did not parse.",
		}),
		promReconn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_reconnects_total",
			Help:      "Reconnection attempts of the event stream.",
		}),
		promFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_drawn_total",
			Help:      "Frames drawn by the render scheduler.",
		}),
		promFPS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frames_per_second",
			Help:      "Last reported presentation rate.",
		}),
		promWindow: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "window_samples",
			Help:      "Samples currently held in the window.",
		}),
		promDerive: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "derive_duration_seconds",
			Help:      "Time spent deriving the filtered and aggregated view.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"refresh"}),
	}
	m.registry.MustRegister(m.promIngest, m.promDrop, m.promReconn, m.promFrames, m.promFPS, m.promWindow, m.promDerive)
	m.startedNs.Store(time.Now().UnixNano())
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveIngest(now time.Time, sampleMs int64, windowLen int) {
	if now.IsZero() {
		now = time.Now()
	}
	nowNs := now.UnixNano()
	m.firstIngestNs.CompareAndSwap(0, nowNs)
	m.lastIngestNs.Store(nowNs)
	m.lastSampleMs.Store(sampleMs)
	m.ingested.Add(1)
	m.promIngest.Inc()
	m.promWindow.Set(float64(windowLen))
}

func (m *Metrics) ObserveDrop() {
	m.dropped.Add(1)
	m.promDrop.Inc()
}

func (m *Metrics) ObserveReconnect() {
	m.reconnects.Add(1)
	m.promReconn.Inc()
}

func (m *Metrics) ObserveFrame() {
	m.frames.Add(1)
	m.promFrames.Inc()
}

func (m *Metrics) ObserveFPS(fps int) {
	m.fps.Store(int64(fps))
	m.promFPS.Set(float64(fps))
}

// ObserveDerive records one derivation. Cached results are counted but do
// not enter the latency ring.
func (m *Metrics) ObserveDerive(d time.Duration, r pipeline.Refresh) {
	m.mu.Lock()
	if int(r) < len(m.refreshes) {
		m.refreshes[r]++
	}
	if r != pipeline.Cached {
		m.derive.add(d)
	}
	m.mu.Unlock()
	if r != pipeline.Cached {
		m.promDerive.WithLabelValues(r.String()).Observe(d.Seconds())
	}
}

type Snapshot struct {
	Started    time.Time
	Records    uint64
	AvgRps     uint64
	Dropped    uint64
	Reconnects uint64
	Frames     uint64
	FPS        int
	// IngestLag is wall time minus the timestamp of the newest sample.
	IngestLag time.Duration
	Cached    uint64
	Partial   uint64
	Full      uint64
	Derive    DurationStats
}

func (m *Metrics) Snapshot(now time.Time) Snapshot {
	s := Snapshot{
		Records:    m.ingested.Load(),
		Dropped:    m.dropped.Load(),
		Reconnects: m.reconnects.Load(),
		Frames:     m.frames.Load(),
		FPS:        int(m.fps.Load()),
	}
	if ns := m.startedNs.Load(); ns != 0 {
		s.Started = time.Unix(0, ns)
	}
	first, last := m.firstIngestNs.Load(), m.lastIngestNs.Load()
	if first != 0 && last > first {
		active := time.Duration(last - first)
		s.AvgRps = uint64(float64(s.Records)/active.Seconds() + 0.5)
	}
	if s.Records > 0 {
		s.IngestLag = max(0, now.Sub(time.UnixMilli(m.lastSampleMs.Load())))
	}

	m.mu.Lock()
	s.Cached = m.refreshes[pipeline.Cached]
	s.Partial = m.refreshes[pipeline.Partial]
	s.Full = m.refreshes[pipeline.Full]
	s.Derive = m.derive.snapshot()
	m.mu.Unlock()
	return s
}
