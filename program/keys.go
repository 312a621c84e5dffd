package main

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Chart       key.Binding
	Aggregation key.Binding
	TimeRange   key.Binding
	MinDown     key.Binding
	MinUp       key.Binding
	MaxDown     key.Binding
	MaxUp       key.Binding
	ZoomIn      key.Binding
	ZoomOut     key.Binding
	PanLeft     key.Binding
	PanRight    key.Binding
	Reset       key.Binding
	Pause       key.Binding
	Up          key.Binding
	Down        key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Top         key.Binding
	Bottom      key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Pause, k.Chart, k.Aggregation, k.TimeRange, k.Reset, k.Help}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Quit, k.Pause, k.Help},
		{k.Chart, k.Aggregation, k.TimeRange},
		{k.MinDown, k.MinUp, k.MaxDown, k.MaxUp},
		{k.ZoomIn, k.ZoomOut, k.PanLeft, k.PanRight, k.Reset},
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Top, k.Bottom},
	}
}

var keys = keyMap{
	Chart: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "chart"),
	),
	Aggregation: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "aggregation"),
	),
	TimeRange: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "time range"),
	),
	MinDown: key.NewBinding(
		key.WithKeys("["),
		key.WithHelp("[", "min -10"),
	),
	MinUp: key.NewBinding(
		key.WithKeys("]"),
		key.WithHelp("]", "min +10"),
	),
	MaxDown: key.NewBinding(
		key.WithKeys("{"),
		key.WithHelp("{", "max -10"),
	),
	MaxUp: key.NewBinding(
		key.WithKeys("}"),
		key.WithHelp("}", "max +10"),
	),
	ZoomIn: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+/wheel", "zoom in"),
	),
	ZoomOut: key.NewBinding(
		key.WithKeys("-", "_"),
		key.WithHelp("-/wheel", "zoom out"),
	),
	PanLeft: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←/h/drag", "pan left"),
	),
	PanRight: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→/l/drag", "pan right"),
	),
	Reset: key.NewBinding(
		key.WithKeys("0"),
		key.WithHelp("0", "reset view"),
	),
	Pause: key.NewBinding(
		key.WithKeys("p", " "),
		key.WithHelp("p/space", "pause"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "row up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "row down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("pgup", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("pgdn", "page down"),
	),
	Top: key.NewBinding(
		key.WithKeys("home", "g"),
		key.WithHelp("home/g", "first row"),
	),
	Bottom: key.NewBinding(
		key.WithKeys("end", "G"),
		key.WithHelp("end/G", "follow"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q/ctrl+c", "quit"),
	),
}
