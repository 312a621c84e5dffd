package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	tui "github.com/charmbracelet/bubbletea"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/keilerkonzept/streamdash/dashboard"
	"github.com/keilerkonzept/streamdash/metrics"
	"github.com/keilerkonzept/streamdash/pipeline"
	"github.com/keilerkonzept/streamdash/stream"
	"github.com/keilerkonzept/streamdash/window"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "streamdash",
		Short: "Live terminal dashboard for a stream of timestamped samples.",
		Long: `streamdash keeps the newest samples of an event stream in a bounded window
and charts them at display rate with zoom and pan.

Samples are JSON objects {"timestamp": <ms>, "value": <real>}, read from a
server-sent event stream (--url), a JSON-lines file (--in) or piped stdin.`,
		Example:       "  streamdash --url http://localhost:3000/api/data\n  gen | streamdash --chart heatmap",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := v.Unmarshal(&config); err != nil {
				return errors.Wrap(err, "unable to unmarshal config")
			}
			if err := validateAndNormalizeConfig(); err != nil {
				return err
			}
			return run(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.String("url", config.URL, "Server-sent event stream to read samples from")
	f.String("in", config.InputPath, "Read JSON-lines samples from this file (\"-\" = stdin)")
	f.Duration("pace", config.Pace, "Sleep between input records (e.g. 5ms, 50ms)")
	f.Bool("replay", config.Replay, "Replay input in (scaled) real time using the record timestamps")
	f.Float64("replay-speed", config.ReplaySpeed, "Replay speed factor (1=real-time, 2=2x faster, 0.5=2x slower)")
	f.Duration("replay-max-sleep", config.ReplayMaxSleep, "Cap per-record replay sleep (0 = no cap)")
	f.Uint64("max-retries", config.MaxRetries, "Give up after this many failed reconnects in a row (0 = never)")
	f.Duration("retry-max-interval", config.RetryMaxInterval, "Upper bound of the reconnect backoff")
	f.Int("capacity", config.Capacity, "Number of samples kept in the window")
	f.String("aggregation", config.Aggregation, "Aggregation: realtime, 10s or 30s")
	f.String("time-range", config.TimeRange, "Time range: live, 1m or 5m")
	f.Float64("value-min", config.ValueMin, "Hide samples below this value")
	f.Float64("value-max", config.ValueMax, "Hide samples above this value")
	f.Duration("refresh", config.Refresh, "How often derived views are rebuilt from scratch (0 = always)")
	f.Int("bands", config.Bands, "Show the top K value bands")
	f.Duration("band-window", config.BandWindow, "Sliding window of the value band leaderboard")
	f.Duration("band-full-refresh", config.BandFullRefresh, "How often to do a full leaderboard refresh (0 = always)")
	f.Int("fps", config.FPS, "Target presentation rate (frames per second)")
	f.String("chart", config.Chart, "Chart: line, scatter, bar or heatmap")
	f.Int("overscan", config.Overscan, "Extra table rows materialised above and below the visible ones")
	f.Int("view-split", config.ViewSplit, "Split the view at this % of the total screen width [20,80]")
	f.Bool("alt-screen", config.AltScreen, "Use the terminal alternate screen buffer")
	f.Bool("stats", config.StatsEnabled, "Show runtime performance stats")
	f.Int("stats-window", config.StatsWindow, "Number of recent samples kept per metric")
	f.String("metrics-addr", config.MetricsAddr, "Serve Prometheus metrics on this address (empty disables)")
	f.String("log-file", config.LogFile, "Append logs to this file (empty discards)")
	f.String("log-level", config.LogLevel, "Log level: debug, info, warn or error")

	v.SetEnvPrefix("STREAMDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(f); err != nil {
		panic(err)
	}
	return cmd
}

func run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger, logFile, err := newLogger(config.LogFile, config.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logFile.Close() }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	met := metrics.New(config.StatsWindow)
	store := dashboard.New(dashboard.Config{
		Capacity: config.Capacity,
		Chart:    config.chart,
		Settings: pipeline.Settings{
			TimeRange:   config.timeRange,
			ValueRange:  config.valueRange,
			Aggregation: config.aggregation,
		},
		Refresh: config.Refresh,
		Bands: pipeline.BandConfig{
			K:           config.Bands,
			Window:      config.BandWindow,
			Tick:        time.Second,
			FullRefresh: config.BandFullRefresh,
		},
		Metrics: met,
	})

	gate := &stream.Gate{}
	samples := make(chan window.Sample, 4096)
	m := newModel(ctx, store, met, gate, samples)

	var p *tui.Program
	send := func(msg tui.Msg) {
		if p != nil {
			p.Send(msg)
		}
	}
	src := newSource(logger, met, gate, send)
	if src == nil {
		m.inputErr = errNoInput
	}

	opts := []tui.ProgramOption{tui.WithInputTTY(), tui.WithMouseCellMotion(), tui.WithContext(ctx)}
	if config.AltScreen {
		opts = append(opts, tui.WithAltScreen())
	}
	p = tui.NewProgram(m, opts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		defer m.close()
		_, err := p.Run()
		if errors.Is(err, tui.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	})

	if src != nil {
		g.Go(func() error {
			emit := func(s window.Sample) {
				select {
				case samples <- s:
				case <-gctx.Done():
				}
			}
			err := src.Run(gctx, emit)
			if err != nil {
				level.Error(logger).Log("msg", "input stopped", "err", err)
			} else {
				level.Info(logger).Log("msg", "input finished")
			}
			send(sourceDoneMsg{err: err})
			return nil
		})
	}

	if config.MetricsAddr != "" {
		srv := &http.Server{Addr: config.MetricsAddr, Handler: metricsMux(met), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			level.Info(logger).Log("msg", "serving metrics", "addr", config.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrap(err, "metrics server")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

func metricsMux(met *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", met.Handler())
	return mux
}

var errNoInput = errors.New("no input: pass --url or --in, or pipe JSON lines to stdin")

// newSource picks the push channel from the config, or returns nil when
// there is nothing to read.
func newSource(logger log.Logger, met *metrics.Metrics, gate *stream.Gate, send func(tui.Msg)) stream.Source {
	drops := &rate.Sometimes{First: 3, Interval: 5 * time.Second}
	onDrop := func(data []byte, err error) {
		met.ObserveDrop()
		drops.Do(func() {
			level.Debug(logger).Log("msg", "dropped malformed payload", "err", err, "payload", string(data))
		})
	}

	if config.URL != "" {
		return &stream.SSE{
			URL:         config.URL,
			MaxRetries:  config.MaxRetries,
			MaxInterval: config.RetryMaxInterval,
			Gate:        gate,
			Logger:      log.With(logger, "component", "sse"),
			OnDrop:      onDrop,
			OnStatus: func(st stream.Status) {
				if st.State == stream.Connecting && st.Attempt > 1 {
					met.ObserveReconnect()
				}
				send(statusMsg(st))
			},
		}
	}

	src := &stream.JSONLines{
		Path:           config.InputPath,
		Pace:           config.Pace,
		Replay:         config.Replay,
		ReplaySpeed:    config.ReplaySpeed,
		ReplayMaxSleep: config.ReplayMaxSleep,
		Gate:           gate,
		OnDrop:         onDrop,
	}
	if !src.Available() {
		return nil
	}
	return src
}
