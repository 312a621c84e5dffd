// Package dashboard holds the state of one dashboard: the window, the user's
// filter, aggregation, chart and viewport choices, and the derived view.
// Writes go through named mutators; reads are projections. The chart frame
// is published to a render.Latest cell that the frame loop reads.
package dashboard

import (
	"time"

	"github.com/pkg/errors"

	"github.com/keilerkonzept/streamdash/chart"
	"github.com/keilerkonzept/streamdash/metrics"
	"github.com/keilerkonzept/streamdash/pipeline"
	"github.com/keilerkonzept/streamdash/render"
	"github.com/keilerkonzept/streamdash/viewport"
	"github.com/keilerkonzept/streamdash/window"
)

type Config struct {
	Capacity int
	Chart    chart.Kind
	Settings pipeline.Settings
	// Refresh is how often the derived view is rebuilt from scratch, and how
	// often a time-range filter catches up with the clock.
	Refresh time.Duration
	Bands   pipeline.BandConfig
	Metrics *metrics.Metrics
	Clock   func() time.Time
}

func DefaultConfig() Config {
	return Config{
		Capacity: window.DefaultCapacity,
		Chart:    chart.Line,
		Settings: pipeline.DefaultSettings(),
		Refresh:  time.Second,
		Bands:    pipeline.DefaultBandConfig(),
	}
}

// Store is not safe for concurrent use. It belongs to the event loop; only
// the Latest cell it publishes to is read from elsewhere.
type Store struct {
	buf      *window.Buffer
	snap     window.Snapshot
	settings pipeline.Settings
	kind     chart.Kind
	vp       viewport.State
	drag     viewport.Drag
	width    float64
	height   float64

	deriver *pipeline.Deriver
	view    pipeline.View
	bands   *pipeline.BandTracker
	latest  *render.Latest[chart.Frame]
	metrics *metrics.Metrics
	now     func() time.Time
}

func New(cfg Config) *Store {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Settings.Aggregation == nil {
		cfg.Settings.Aggregation = pipeline.Realtime{}
	}
	if !cfg.Settings.ValueRange.Valid() {
		cfg.Settings.ValueRange = pipeline.DefaultValueRange
	}
	cfg.Settings.Heatmap = cfg.Chart == chart.Heatmap
	buf := window.NewBuffer(cfg.Capacity)
	s := &Store{
		buf:      buf,
		snap:     buf.Snapshot(),
		settings: cfg.Settings,
		kind:     cfg.Chart,
		vp:       viewport.Initial(),
		deriver:  pipeline.NewDeriver(cfg.Refresh),
		bands:    pipeline.NewBandTracker(cfg.Bands),
		latest:   &render.Latest[chart.Frame]{},
		metrics:  cfg.Metrics,
		now:      cfg.Clock,
	}
	s.Refresh(s.now())
	return s
}

// Latest is the cell the render scheduler reads frames from.
func (s *Store) Latest() *render.Latest[chart.Frame] { return s.latest }

// Append adds a sample to the window. The derived view catches up on the
// next Refresh.
func (s *Store) Append(x window.Sample) {
	s.snap = s.buf.Append(x)
	s.bands.Observe(x)
	if s.metrics != nil {
		s.metrics.ObserveIngest(s.now(), x.Timestamp, s.snap.Len())
	}
}

// Refresh derives the view of the current snapshot and publishes a frame if
// anything changed.
func (s *Store) Refresh(now time.Time) pipeline.Refresh {
	start := time.Now()
	view, r := s.deriver.Derive(s.snap, s.settings, now)
	if s.metrics != nil {
		s.metrics.ObserveDerive(time.Since(start), r)
	}
	if r == pipeline.Cached && s.latest.Version() > 0 {
		return r
	}
	s.view = view
	s.publish()
	return r
}

func (s *Store) publish() {
	s.latest.Store(s.Frame())
}

// derive re-derives after a settings change.
func (s *Store) derive() { s.Refresh(s.now()) }

// SetChartType reports whether the chart type changed, i.e. whether the draw
// callback must be replaced.
func (s *Store) SetChartType(k chart.Kind) bool {
	if k == s.kind {
		return false
	}
	s.kind = k
	s.settings.Heatmap = k == chart.Heatmap
	s.derive()
	return true
}

func (s *Store) SetAggregation(a pipeline.Aggregation) {
	if a == nil {
		a = pipeline.Realtime{}
	}
	s.settings.Aggregation = a
	s.derive()
}

func (s *Store) SetTimeRange(tr pipeline.TimeRange) {
	s.settings.TimeRange = tr
	s.derive()
}

// SetValueMin clamps v to the value domain. It rejects a min that is not
// below the current max and leaves the state unchanged.
func (s *Store) SetValueMin(v float64) error {
	vr, err := pipeline.NewValueRange(pipeline.ClampToDomain(v), s.settings.ValueRange.Max)
	if err != nil {
		return errors.Wrap(err, "set value min")
	}
	s.settings.ValueRange = vr
	s.derive()
	return nil
}

func (s *Store) SetValueMax(v float64) error {
	vr, err := pipeline.NewValueRange(s.settings.ValueRange.Min, pipeline.ClampToDomain(v))
	if err != nil {
		return errors.Wrap(err, "set value max")
	}
	s.settings.ValueRange = vr
	s.derive()
	return nil
}

// Resize sets the chart's pixel size and re-clamps the pan offset to it.
func (s *Store) Resize(width, height int) {
	s.width, s.height = float64(max(width, 0)), float64(max(height, 0))
	s.setViewport(s.vp.Resize(s.width))
}

func (s *Store) Wheel(deltaY float64) {
	s.setViewport(s.vp.Wheel(deltaY, s.width))
}

func (s *Store) ZoomIn()  { s.setViewport(s.vp.ZoomIn(s.width)) }
func (s *Store) ZoomOut() { s.setViewport(s.vp.ZoomOut(s.width)) }

// Pan moves the content by deltaX pixels, like dragging it.
func (s *Store) Pan(deltaX float64) {
	s.setViewport(s.vp.Pan(deltaX, s.width))
}

func (s *Store) BeginDrag(x float64) { s.drag.Begin(x) }

func (s *Store) DragTo(x float64) {
	if dx, ok := s.drag.Move(x); ok {
		s.Pan(dx)
	}
}

func (s *Store) EndDrag() { s.drag.End() }

func (s *Store) Dragging() bool { return s.drag.Active() }

func (s *Store) ResetView() { s.setViewport(viewport.Initial()) }

func (s *Store) setViewport(vp viewport.State) {
	if vp == s.vp {
		return
	}
	s.vp = vp
	s.publish()
}

// Frame is the chart input: the derived series and histogram together with
// the viewport, as one value.
func (s *Store) Frame() chart.Frame {
	return chart.Frame{
		Series:   s.view.Series,
		Heatmap:  s.view.Heatmap,
		Viewport: s.vp,
	}
}

func (s *Store) Chart() chart.Kind                   { return s.kind }
func (s *Store) Settings() pipeline.Settings         { return s.settings }
func (s *Store) Viewport() viewport.State            { return s.vp }
func (s *Store) View() pipeline.View                 { return s.view }
func (s *Store) Snapshot() window.Snapshot           { return s.snap }
func (s *Store) Bands(now time.Time) []pipeline.Band { return s.bands.Top(now) }
