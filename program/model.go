package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tui "github.com/charmbracelet/bubbletea"
	styles "github.com/charmbracelet/lipgloss"
	plot "github.com/chriskim06/drawille-go"
	"github.com/samber/lo"

	"github.com/keilerkonzept/streamdash/chart"
	"github.com/keilerkonzept/streamdash/dashboard"
	"github.com/keilerkonzept/streamdash/fps"
	"github.com/keilerkonzept/streamdash/metrics"
	"github.com/keilerkonzept/streamdash/pipeline"
	"github.com/keilerkonzept/streamdash/render"
	"github.com/keilerkonzept/streamdash/stream"
	"github.com/keilerkonzept/streamdash/virtual"
	"github.com/keilerkonzept/streamdash/window"
)

const (
	maxBatch      = 1024
	valueStep     = 10.0
	wheelRows     = 3
	overviewLines = 3
)

type model struct {
	ctx     context.Context
	store   *dashboard.Store
	metrics *metrics.Metrics
	gate    *stream.Gate
	samples <-chan window.Sample

	sched     *render.Scheduler[chart.Frame]
	gen       uint64
	raster    *render.Raster
	presenter render.Presenter
	chartText string

	fps          *fps.Monitor
	scroller     *virtual.Scroller
	cancelScroll func()
	rows         virtual.Window

	list         list.Model
	listDelegate *list.DefaultDelegate
	help         help.Model
	overview     *plot.Canvas
	overviewData [][]float64

	width, height int
	layout        layout

	conn     string
	inputErr error
	notice   string
}

type layout struct {
	left, right  int
	chartX       int
	chartY       int
	chartCols    int
	chartRows    int
	tableY       int
	tableRows    int
	bandRows     int
	overviewCols int
}

func newModel(ctx context.Context, store *dashboard.Store, met *metrics.Metrics, gate *stream.Gate, samples <-chan window.Sample) *model {
	const (
		defaultWidth  = 80
		defaultHeight = 24
	)

	d := list.NewDefaultDelegate()
	d.ShowDescription = false
	d.SetSpacing(0)
	d.Styles.SelectedTitle = styles.NewStyle().
		Border(styles.NormalBorder(), false, false, false, true).
		BorderForeground(borderColor).
		Foreground(selectedColor).
		Padding(0, 0, 0, 1)

	l := list.New(make([]list.Item, 0), d, defaultWidth/3, config.Bands+1)
	l.Title = fmt.Sprintf("TOP VALUE BANDS (%s)", config.BandWindow)
	l.Styles.Title = styles.NewStyle().Foreground(borderColor)
	l.Styles.TitleBar = styles.NewStyle()
	l.Styles.NoItems = l.Styles.NoItems.Padding(0, 2)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowPagination(false)

	m := &model{
		ctx:          ctx,
		store:        store,
		metrics:      met,
		gate:         gate,
		samples:      samples,
		presenter:    chart.PresenterFor(store.Chart()),
		fps:          fps.New(fps.DefaultInterval, config.StatsWindow),
		scroller:     virtual.NewScroller(1, config.Overscan),
		list:         l,
		listDelegate: &d,
		help:         help.New(),
		conn:         "waiting",
	}
	m.sched = render.NewScheduler(store.Latest(), nil)
	m.gen = m.sched.Replace(chart.For(store.Chart()))
	m.cancelScroll = m.scroller.Listen(func(w virtual.Window) { m.rows = w })
	m.resize(defaultWidth, defaultHeight)
	return m
}

// close tears down the frame loop and the scroll listener.
func (m *model) close() {
	m.sched.Stop()
	m.cancelScroll()
	m.scroller.Close()
}

type samplesMsg []window.Sample

// waitForSamples blocks for one sample and then drains whatever else is
// already queued, so a burst costs one Update.
func (m *model) waitForSamples() tui.Cmd {
	return func() tui.Msg {
		var batch []window.Sample
		select {
		case <-m.ctx.Done():
			return nil
		case s := <-m.samples:
			batch = append(batch, s)
		}
		for len(batch) < maxBatch {
			select {
			case s := <-m.samples:
				batch = append(batch, s)
			default:
				return samplesMsg(batch)
			}
		}
		return samplesMsg(batch)
	}
}

type frameTickMsg struct {
	gen uint64
	at  time.Time
}

// doFrameTick requests the next frame of loop gen. A loop whose generation
// was replaced is simply not re-armed.
func doFrameTick(gen uint64) tui.Cmd {
	return tui.Tick(time.Second/time.Duration(config.FPS), func(t time.Time) tui.Msg {
		return frameTickMsg{gen: gen, at: t}
	})
}

type BandsTickMsg time.Time

func doBandsTick() tui.Cmd {
	return tui.Every(time.Second, func(t time.Time) tui.Msg {
		return BandsTickMsg(t)
	})
}

type OverviewTickMsg time.Time

func doOverviewTick() tui.Cmd {
	return tui.Every(200*time.Millisecond, func(t time.Time) tui.Msg {
		return OverviewTickMsg(t)
	})
}

type fpsMsg int

func (m *model) waitForFPS() tui.Cmd {
	return func() tui.Msg {
		select {
		case <-m.ctx.Done():
			return nil
		case v := <-m.fps.Reports():
			return fpsMsg(v)
		}
	}
}

type statusMsg stream.Status

type sourceDoneMsg struct{ err error }

func (m *model) Init() tui.Cmd {
	return tui.Batch(m.waitForSamples(), doFrameTick(m.gen), doBandsTick(), doOverviewTick(), m.waitForFPS())
}

func (m *model) Update(msg tui.Msg) (tui.Model, tui.Cmd) {
	switch msg := msg.(type) {
	case samplesMsg:
		m.ingest(msg)
		return m, m.waitForSamples()
	case frameTickMsg:
		m.store.Refresh(msg.at)
		if !m.sched.Frame(msg.gen, msg.at) {
			return m, nil
		}
		m.metrics.ObserveFrame()
		m.fps.Tick(msg.at)
		m.chartText = m.presenter.Present(m.raster.Image(), m.layout.chartCols, m.layout.chartRows)
		return m, doFrameTick(msg.gen)
	case fpsMsg:
		m.metrics.ObserveFPS(int(msg))
		return m, m.waitForFPS()
	case BandsTickMsg:
		cmd := m.updateBands(time.Time(msg))
		return m, tui.Batch(cmd, doBandsTick())
	case OverviewTickMsg:
		m.updateOverview()
		return m, doOverviewTick()
	case statusMsg:
		m.conn = formatConn(stream.Status(msg))
		return m, nil
	case sourceDoneMsg:
		if msg.err != nil {
			m.inputErr = msg.err
			m.conn = "stopped"
		} else {
			m.conn = "input finished"
		}
		return m, nil
	case tui.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case tui.MouseMsg:
		m.mouse(msg)
		return m, nil
	case tui.KeyMsg:
		return m, m.keyPress(msg)
	}
	return m, nil
}

func (m *model) ingest(batch []window.Sample) {
	follow := m.scroller.AtEnd()
	for _, s := range batch {
		m.store.Append(s)
	}
	m.store.Refresh(time.Now())
	m.scroller.Resize(float64(m.layout.tableRows), m.store.Snapshot().Len())
	if follow {
		m.scroller.ScrollToEnd()
	}
}

func (m *model) keyPress(msg tui.KeyMsg) tui.Cmd {
	m.notice = ""
	panStep := float64(m.pixelWidth()) / 10
	switch {
	case key.Matches(msg, keys.Quit):
		return tui.Quit
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize(m.width, m.height)
	case key.Matches(msg, keys.Pause):
		m.gate.Toggle()
	case key.Matches(msg, keys.Chart):
		return m.switchChart(m.store.Chart().Next())
	case key.Matches(msg, keys.Aggregation):
		m.store.SetAggregation(pipeline.NextAggregation(m.store.Settings().Aggregation))
	case key.Matches(msg, keys.TimeRange):
		m.store.SetTimeRange(m.store.Settings().TimeRange.Next())
	case key.Matches(msg, keys.MinDown):
		m.reject(m.store.SetValueMin(m.store.Settings().ValueRange.Min - valueStep))
	case key.Matches(msg, keys.MinUp):
		m.reject(m.store.SetValueMin(m.store.Settings().ValueRange.Min + valueStep))
	case key.Matches(msg, keys.MaxDown):
		m.reject(m.store.SetValueMax(m.store.Settings().ValueRange.Max - valueStep))
	case key.Matches(msg, keys.MaxUp):
		m.reject(m.store.SetValueMax(m.store.Settings().ValueRange.Max + valueStep))
	case key.Matches(msg, keys.ZoomIn):
		m.store.ZoomIn()
	case key.Matches(msg, keys.ZoomOut):
		m.store.ZoomOut()
	case key.Matches(msg, keys.PanLeft):
		m.store.Pan(panStep)
	case key.Matches(msg, keys.PanRight):
		m.store.Pan(-panStep)
	case key.Matches(msg, keys.Reset):
		m.store.ResetView()
	case key.Matches(msg, keys.Up):
		m.scroller.ScrollBy(-1)
	case key.Matches(msg, keys.Down):
		m.scroller.ScrollBy(1)
	case key.Matches(msg, keys.PageUp):
		m.scroller.ScrollBy(-float64(m.layout.tableRows))
	case key.Matches(msg, keys.PageDown):
		m.scroller.ScrollBy(float64(m.layout.tableRows))
	case key.Matches(msg, keys.Top):
		m.scroller.ScrollTo(0)
	case key.Matches(msg, keys.Bottom):
		m.scroller.ScrollToEnd()
	}
	return nil
}

func (m *model) reject(err error) {
	if err != nil {
		m.notice = err.Error()
	}
}

// switchChart replaces the draw callback, which retires the running frame
// loop and starts a new one.
func (m *model) switchChart(k chart.Kind) tui.Cmd {
	if !m.store.SetChartType(k) {
		return nil
	}
	m.presenter = chart.PresenterFor(k)
	m.gen = m.sched.Replace(chart.For(k))
	m.resizeRaster()
	m.fps.Reset()
	return doFrameTick(m.gen)
}

func (m *model) mouse(msg tui.MouseMsg) {
	inChart := m.inChart(msg.X, msg.Y)
	zoomable := m.store.Chart().Zoomable()
	switch {
	case msg.Button == tui.MouseButtonWheelUp && inChart && zoomable:
		m.store.Wheel(-1)
	case msg.Button == tui.MouseButtonWheelDown && inChart && zoomable:
		m.store.Wheel(1)
	case msg.Button == tui.MouseButtonWheelUp && m.inTable(msg.X, msg.Y):
		m.scroller.ScrollBy(-wheelRows)
	case msg.Button == tui.MouseButtonWheelDown && m.inTable(msg.X, msg.Y):
		m.scroller.ScrollBy(wheelRows)
	case msg.Action == tui.MouseActionPress && msg.Button == tui.MouseButtonLeft && inChart && zoomable:
		m.store.BeginDrag(m.pixelX(msg.X))
	case msg.Action == tui.MouseActionMotion && m.store.Dragging():
		m.store.DragTo(m.pixelX(msg.X))
	case msg.Action == tui.MouseActionRelease:
		m.store.EndDrag()
	}
}

func (m *model) inChart(x, y int) bool {
	l := m.layout
	return x >= l.chartX && x < l.chartX+l.chartCols && y >= l.chartY && y < l.chartY+l.chartRows
}

func (m *model) inTable(x, y int) bool {
	l := m.layout
	return x >= l.left && y >= l.tableY && y < l.tableY+l.tableRows
}

func (m *model) pixelX(x int) float64 {
	px, _ := m.presenter.PixelSize(1, 1)
	return float64((x - m.layout.chartX) * px)
}

func (m *model) pixelWidth() int {
	w, _ := m.presenter.PixelSize(m.layout.chartCols, m.layout.chartRows)
	return w
}

func (m *model) resize(w, h int) {
	m.width, m.height = w, h
	helpLines := 1
	if m.help.ShowAll {
		helpLines = lo.Max(lo.Map(keys.FullHelp(), func(col []key.Binding, _ int) int { return len(col) }))
	}
	statsLines := 0
	if config.StatsEnabled {
		// title + 4 metric lines
		statsLines = 5
	}
	// header, notice, two status lines
	fixed := 4 + overviewLines + statsLines + helpLines
	mainRows := max(6, h-fixed)

	l := layout{}
	l.left, l.right = computePaneWidths(w, config.ViewSplit)
	l.chartX = gutterWidth + 1
	l.chartY = 2
	l.chartCols = max(1, l.left-gutterWidth-2)
	l.chartRows = max(1, mainRows-2)
	l.bandRows = min(config.Bands+2, mainRows/3)
	// the table has a header line
	l.tableY = 2
	l.tableRows = max(1, mainRows-l.bandRows-1)
	l.overviewCols = max(1, w-gutterWidth-2)
	m.layout = l

	m.list.SetSize(max(1, l.right-1), max(1, l.bandRows))
	m.help.Width = w
	m.scroller.Resize(float64(l.tableRows), m.store.Snapshot().Len())
	m.resizeRaster()
	m.resizeOverview()
}

func (m *model) resizeRaster() {
	pw, ph := m.presenter.PixelSize(m.layout.chartCols, m.layout.chartRows)
	m.raster = render.NewRaster(pw, ph)
	m.sched.SetSurface(m.raster)
	m.store.Resize(pw, ph)
}

func (m *model) resizeOverview() {
	p := plot.NewCanvas(m.layout.overviewCols, overviewLines)
	p.NumDataPoints = m.layout.overviewCols * 2
	p.ShowAxis = false
	p.LineColors = []plot.Color{overviewColor()}
	m.overview = &p
	m.overviewData = [][]float64{make([]float64, p.NumDataPoints)}
	m.updateOverview()
}

func overviewColor() plot.Color {
	if styles.DefaultRenderer().HasDarkBackground() {
		return plot.Red
	}
	return plot.Black
}

// updateOverview plots the whole window at zoom 1, averaging runs of samples
// that share a column.
func (m *model) updateOverview() {
	series := m.overviewData[0]
	samples := m.store.Snapshot().Samples()
	n, points := len(samples), len(series)
	for j := range series {
		if n == 0 {
			series[j] = 0
			continue
		}
		from, to := j*n/points, (j+1)*n/points
		if to <= from {
			series[j] = samples[min(from, n-1)].Value
			continue
		}
		series[j] = lo.SumBy(samples[from:to], func(s window.Sample) float64 { return s.Value }) / float64(to-from)
	}
	m.overview.Fill(m.overviewData)
}

func (m *model) updateBands(now time.Time) tui.Cmd {
	bands := m.store.Bands(now)
	items := lo.Map(bands, func(b pipeline.Band, i int) list.Item {
		return bandItem{Rank: i + 1, Band: b}
	})
	return m.list.SetItems(items)
}
