package main

import (
	"fmt"
	"strings"
	"time"

	styles "github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/keilerkonzept/streamdash/chart"
	"github.com/keilerkonzept/streamdash/fps"
	"github.com/keilerkonzept/streamdash/stream"
	"github.com/keilerkonzept/streamdash/virtual"
)

const gutterWidth = 4

var (
	selectedColor = styles.AdaptiveColor{Light: "0", Dark: "9"}
	borderColor   = styles.AdaptiveColor{Light: "#555", Dark: "#555"}
	selectedFg    = styles.NewStyle().Foreground(selectedColor)
	borderFg      = styles.NewStyle().Foreground(borderColor)
	errFg         = styles.NewStyle().Foreground(styles.AdaptiveColor{Light: "1", Dark: "9"})
	plotStyle     = styles.NewStyle().
			BorderStyle(styles.NormalBorder()).
			BorderForeground(borderColor)

	gradeColors = map[fps.Grade]styles.Color{
		fps.Good: styles.Color("#00C49F"),
		fps.Fair: styles.Color("#FFB900"),
		fps.Poor: styles.Color("#FF6384"),
	}
)

func (m *model) View() string {
	l := m.layout
	left := styles.JoinHorizontal(styles.Top, m.gutter(), plotStyle.Render(m.chartBlock()))
	left = styles.NewStyle().Width(l.left).Render(left)
	right := styles.JoinVertical(styles.Left, m.table(), m.list.View())
	view := styles.JoinHorizontal(styles.Top, left, right)

	st := m.store.Status()
	lines := []string{
		m.header(),
		view,
		styles.NewStyle().PaddingLeft(gutterWidth+1).Render(m.overview.String()),
		st.PointsLabel() + "   " + st.ViewLabel(),
		borderFg.Render(st.FilterLabel()),
	}
	switch {
	case m.notice != "":
		lines = append(lines, errFg.Render(m.notice))
	case m.inputErr != nil:
		lines = append(lines, errFg.Render("ERROR: "+m.inputErr.Error()))
	default:
		lines = append(lines, "")
	}
	if config.StatsEnabled {
		lines = append(lines, errFg.Render(strings.Join(m.stats(), "\n")))
	}
	lines = append(lines, m.help.View(keys))
	return styles.JoinVertical(styles.Left, lines...)
}

func (m *model) header() string {
	state := "RUNNING"
	if m.gate.Paused() {
		state = "PAUSED"
	}
	rate := m.fps.FPS()
	fpsText := styles.NewStyle().Foreground(gradeColors[fps.GradeOf(rate)]).Render(fmt.Sprintf("FPS: %d", rate))
	return fmt.Sprintf("%s  %s  %s  %s",
		selectedFg.Render("STREAMDASH"), state, borderFg.Render("input: "+m.conn), fpsText)
}

// chartBlock is the presented raster, padded to the chart size until the
// first frame arrives.
func (m *model) chartBlock() string {
	if m.chartText != "" {
		return m.chartText
	}
	l := m.layout
	row := strings.Repeat(" ", l.chartCols)
	return strings.TrimSuffix(strings.Repeat(row+"\n", l.chartRows), "\n")
}

// gutter labels the fixed value domain of line and scatter charts.
func (m *model) gutter() string {
	rows := m.layout.chartRows + 2
	lines := make([]string, rows)
	for i := range lines {
		lines[i] = strings.Repeat(" ", gutterWidth)
	}
	if k := m.store.Chart(); k == chart.Line || k == chart.Scatter {
		label := func(i int, s string) { lines[i] = fmt.Sprintf("%*s ", gutterWidth-1, s) }
		label(1, "150")
		label(1+(m.layout.chartRows-1)/2, "100")
		label(rows-2, "50")
	}
	return borderFg.Render(strings.Join(lines, "\n"))
}

// table renders the visible slice of the raw window with a scrollbar. Only
// the rows of the virtualised window are materialised.
func (m *model) table() string {
	l := m.layout
	width := max(1, l.right-2)
	top := int(m.scroller.Top())
	rows := m.store.Rows(m.rows)
	offset, length := virtual.Thumb(m.rows, m.scroller.Top(), float64(l.tableRows), l.tableRows)

	var sb strings.Builder
	sb.WriteString(borderFg.Render(fitWidth(fmt.Sprintf("%-11s %-12s %8s", "ROW", "TIME", "VALUE"), width)))
	for i := range l.tableRows {
		sb.WriteByte('\n')
		text := ""
		if j := top + i - m.rows.Start; j >= 0 && j < len(rows) {
			text = rows[j].String()
		}
		sb.WriteString(fitWidth(text, width))
		sb.WriteByte(' ')
		if i >= offset && i < offset+length {
			sb.WriteString(selectedFg.Render("┃"))
		} else {
			sb.WriteString(borderFg.Render("│"))
		}
	}
	return sb.String()
}

func fitWidth(s string, w int) string {
	if len(s) > w {
		return s[:w]
	}
	return s + strings.Repeat(" ", w-len(s))
}

func (m *model) stats() []string {
	snap := m.metrics.Snapshot(time.Now())
	title := "PERF STATS (RUNNING)"
	if m.gate.Paused() {
		title = "PERF STATS (PAUSED)"
	}
	lag := "n/a"
	if snap.Records > 0 {
		if m.gate.Paused() {
			lag = "paused"
		} else {
			lag = formatMetricDuration(snap.IngestLag)
		}
	}
	hist := m.fps.History()
	return []string{
		title,
		fmt.Sprintf("records: %s  ingest rate: %d rec/s  dropped: %s  reconnects: %d  data freshness lag: %s",
			humanize.Comma(int64(snap.Records)), snap.AvgRps, humanize.Comma(int64(snap.Dropped)), snap.Reconnects, lag),
		fmt.Sprintf("derive last/avg/max: %s / %s / %s",
			formatMetricDuration(snap.Derive.Last), formatMetricDuration(snap.Derive.Avg), formatMetricDuration(snap.Derive.Max)),
		fmt.Sprintf("refreshes: %s full, %s partial, %s cached",
			humanize.Comma(int64(snap.Full)), humanize.Comma(int64(snap.Partial)), humanize.Comma(int64(snap.Cached))),
		fmt.Sprintf("frames: %s  fps min/avg/max: %d / %.1f / %d",
			humanize.Comma(int64(snap.Frames)), hist.Min, hist.Avg, hist.Max),
	}
}

func formatConn(st stream.Status) string {
	switch st.State {
	case stream.Connecting:
		if st.Attempt > 1 {
			return fmt.Sprintf("connecting (attempt %d)", st.Attempt)
		}
		return "connecting"
	case stream.Disconnected:
		return fmt.Sprintf("disconnected, retry in %s", st.Retry.Round(time.Millisecond))
	}
	return st.State.String()
}

func formatMetricDuration(d time.Duration) string {
	if d <= 0 {
		return "0.000ms"
	}
	return fmt.Sprintf("%.3fms", float64(d)/float64(time.Millisecond))
}

func computePaneWidths(totalWidth int, splitPercent int) (left, right int) {
	if totalWidth <= 1 {
		return 1, 1
	}
	left = totalWidth * splitPercent / 100
	left = max(1, min(left, totalWidth-1))
	right = totalWidth - left

	// Keep panes readable when the terminal is wide enough.
	const minPane = 24
	if totalWidth >= minPane*2 {
		if left < minPane {
			left = minPane
			right = totalWidth - left
		}
		if right < minPane {
			right = minPane
			left = totalWidth - right
		}
	}
	return max(1, left), max(1, right)
}
