package main

import (
	"fmt"
	"time"

	"github.com/keilerkonzept/streamdash/chart"
	"github.com/keilerkonzept/streamdash/pipeline"
	"github.com/keilerkonzept/streamdash/virtual"
	"github.com/keilerkonzept/streamdash/window"
)

type Config struct {
	// input
	URL              string        `mapstructure:"url"`
	InputPath        string        `mapstructure:"in"`
	Pace             time.Duration `mapstructure:"pace"`
	Replay           bool          `mapstructure:"replay"`
	ReplaySpeed      float64       `mapstructure:"replay-speed"`
	ReplayMaxSleep   time.Duration `mapstructure:"replay-max-sleep"`
	MaxRetries       uint64        `mapstructure:"max-retries"`
	RetryMaxInterval time.Duration `mapstructure:"retry-max-interval"`

	// pipeline
	Capacity    int           `mapstructure:"capacity"`
	Aggregation string        `mapstructure:"aggregation"`
	TimeRange   string        `mapstructure:"time-range"`
	ValueMin    float64       `mapstructure:"value-min"`
	ValueMax    float64       `mapstructure:"value-max"`
	Refresh     time.Duration `mapstructure:"refresh"`

	// bands
	Bands           int           `mapstructure:"bands"`
	BandWindow      time.Duration `mapstructure:"band-window"`
	BandFullRefresh time.Duration `mapstructure:"band-full-refresh"`

	// render
	FPS       int    `mapstructure:"fps"`
	Chart     string `mapstructure:"chart"`
	Overscan  int    `mapstructure:"overscan"`
	ViewSplit int    `mapstructure:"view-split"`
	AltScreen bool   `mapstructure:"alt-screen"`

	StatsEnabled bool `mapstructure:"stats"`
	StatsWindow  int  `mapstructure:"stats-window"`

	MetricsAddr string `mapstructure:"metrics-addr"`
	LogFile     string `mapstructure:"log-file"`
	LogLevel    string `mapstructure:"log-level"`

	// parsed by validateAndNormalizeConfig
	chart       chart.Kind
	aggregation pipeline.Aggregation
	timeRange   pipeline.TimeRange
	valueRange  pipeline.ValueRange
}

var config = Config{
	ReplaySpeed:      1.0,
	RetryMaxInterval: 10 * time.Second,

	Capacity:    window.DefaultCapacity,
	Aggregation: "realtime",
	TimeRange:   "live",
	ValueMin:    pipeline.DomainMin,
	ValueMax:    pipeline.DomainMax,
	Refresh:     time.Second,

	Bands:           5,
	BandWindow:      time.Minute,
	BandFullRefresh: 2 * time.Second,

	FPS:       60,
	Chart:     "line",
	Overscan:  virtual.DefaultOverscan,
	ViewSplit: 70,
	AltScreen: true,

	StatsEnabled: true,
	StatsWindow:  256,

	LogLevel: "info",
}

func validateAndNormalizeConfig() error {
	if config.URL != "" && config.InputPath != "" {
		return fmt.Errorf("choose only one: --url or --in")
	}
	if config.Pace < 0 {
		return fmt.Errorf("--pace must be >= 0")
	}
	if config.ReplaySpeed <= 0 {
		return fmt.Errorf("--replay-speed must be > 0")
	}
	if config.ReplayMaxSleep < 0 {
		return fmt.Errorf("--replay-max-sleep must be >= 0")
	}
	if config.Replay && config.URL != "" {
		return fmt.Errorf("--replay applies to --in or piped stdin, not --url")
	}
	if config.RetryMaxInterval <= 0 {
		return fmt.Errorf("--retry-max-interval must be > 0")
	}
	if config.Capacity < 1 {
		return fmt.Errorf("--capacity must be >= 1")
	}
	if config.Refresh < 0 {
		return fmt.Errorf("--refresh must be >= 0")
	}
	if config.Bands < 1 {
		return fmt.Errorf("--bands must be >= 1")
	}
	if config.BandWindow < time.Second || config.BandWindow%time.Second != 0 {
		return fmt.Errorf("--band-window must be a whole number of seconds (got %s)", config.BandWindow)
	}
	if config.BandFullRefresh < 0 {
		return fmt.Errorf("--band-full-refresh must be >= 0")
	}
	if config.FPS < 1 || config.FPS > 240 {
		return fmt.Errorf("--fps must be in [1,240]")
	}
	if config.Overscan < 0 {
		return fmt.Errorf("--overscan must be >= 0")
	}
	switch config.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("--log-level must be one of debug, info, warn, error")
	}

	if config.ValueMin < pipeline.DomainMin || config.ValueMax > pipeline.DomainMax {
		return fmt.Errorf("--value-min/--value-max must lie within [%g,%g]", pipeline.DomainMin, pipeline.DomainMax)
	}

	var err error
	if config.chart, err = chart.ParseKind(config.Chart); err != nil {
		return fmt.Errorf("--chart: %w", err)
	}
	if config.aggregation, err = pipeline.ParseAggregation(config.Aggregation); err != nil {
		return fmt.Errorf("--aggregation: %w", err)
	}
	if config.timeRange, err = pipeline.ParseTimeRange(config.TimeRange); err != nil {
		return fmt.Errorf("--time-range: %w", err)
	}
	if config.valueRange, err = pipeline.NewValueRange(config.ValueMin, config.ValueMax); err != nil {
		return fmt.Errorf("--value-min/--value-max: %w", err)
	}

	config.ViewSplit = max(20, config.ViewSplit)
	config.ViewSplit = min(80, config.ViewSplit)
	if config.StatsWindow < 16 {
		config.StatsWindow = 16
	}
	return nil
}
