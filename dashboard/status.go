package dashboard

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/keilerkonzept/streamdash/chart"
	"github.com/keilerkonzept/streamdash/pipeline"
	"github.com/keilerkonzept/streamdash/virtual"
	"github.com/keilerkonzept/streamdash/window"
)

// Row is one line of the raw data table.
type Row struct {
	Number int
	Time   time.Time
	Value  float64
}

func (r Row) String() string {
	return fmt.Sprintf("%-11s %-12s %8.2f", fmt.Sprintf("Row: %d", r.Number), r.Time.Local().Format("15:04:05.000"), r.Value)
}

// Rows materialises the raw window rows in w, oldest first.
func (s *Store) Rows(w virtual.Window) []Row {
	start, end := max(w.Start, 0), min(w.End, s.snap.Len())
	if start >= end {
		return nil
	}
	rows := make([]Row, 0, end-start)
	for i := start; i < end; i++ {
		x := s.snap.At(i)
		rows = append(rows, Row{Number: i + 1, Time: x.Time(), Value: x.Value})
	}
	return rows
}

type Status struct {
	Points      int
	Capacity    int
	Filtered    int
	Zoom        float64
	PanX        float64
	Chart       chart.Kind
	Aggregation pipeline.Aggregation
	TimeRange   pipeline.TimeRange
	ValueRange  pipeline.ValueRange
	Latest      window.Sample
	HasLatest   bool
}

func (s *Store) Status() Status {
	latest, ok := s.snap.Latest()
	return Status{
		Points:      s.snap.Len(),
		Capacity:    s.buf.Capacity(),
		Filtered:    s.view.Filtered,
		Zoom:        s.vp.Zoom,
		PanX:        s.vp.PanX,
		Chart:       s.kind,
		Aggregation: s.settings.Aggregation,
		TimeRange:   s.settings.TimeRange,
		ValueRange:  s.settings.ValueRange,
		Latest:      latest,
		HasLatest:   ok,
	}
}

func (st Status) PointsLabel() string {
	return fmt.Sprintf("Live Data Points (Window): %s / %s",
		humanize.Comma(int64(st.Points)), humanize.Comma(int64(st.Capacity)))
}

func (st Status) ViewLabel() string {
	return fmt.Sprintf("Zoom: %.2fx  Pan: %.0fpx", st.Zoom, st.PanX)
}

func (st Status) FilterLabel() string {
	return fmt.Sprintf("chart: %s  agg: %s  range: %s  values: %s  shown: %s",
		st.Chart, st.Aggregation, st.TimeRange, st.ValueRange, humanize.Comma(int64(st.Filtered)))
}
