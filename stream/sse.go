package stream

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/tmaxmax/go-sse"

	"github.com/keilerkonzept/streamdash/window"
)

const (
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMaxInterval     = 10 * time.Second
)

var errStreamEnded = errors.New("event stream ended")

type State int

const (
	Connecting State = iota
	Connected
	Disconnected
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	}
	return "closed"
}

// Status is a transition of the channel. Err is set for Disconnected and
// for a Closed that ended in failure.
type Status struct {
	State   State
	Attempt uint64
	Err     error
	Retry   time.Duration
}

// SSE reads a text/event-stream and emits the payload of every message event.
// It reconnects on its own with exponential backoff; a successful connection
// resets the backoff and the retry count.
type SSE struct {
	URL    string
	Client *http.Client
	// MaxRetries bounds consecutive failed connections. Zero retries forever.
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Gate            *Gate
	Logger          log.Logger

	OnStatus func(Status)
	OnDrop   func(data []byte, err error)

	reconnects  atomic.Uint64
	lastEventID string
}

func (s *SSE) Reconnects() uint64 { return s.reconnects.Load() }

func (s *SSE) backOff(ctx context.Context) backoff.BackOffContext {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = DefaultInitialInterval
	if s.InitialInterval > 0 {
		expo.InitialInterval = s.InitialInterval
	}
	expo.MaxInterval = DefaultMaxInterval
	if s.MaxInterval > 0 {
		expo.MaxInterval = s.MaxInterval
	}
	expo.MaxElapsedTime = 0
	var b backoff.BackOff = expo
	if s.MaxRetries > 0 {
		b = backoff.WithMaxRetries(b, s.MaxRetries)
	}
	return backoff.WithContext(b, ctx)
}

func (s *SSE) Run(ctx context.Context, emit func(window.Sample)) error {
	logger := s.logger()
	b := s.backOff(ctx)
	var attempt uint64
	err := backoff.RetryNotify(func() error {
		attempt++
		if attempt > 1 {
			s.reconnects.Add(1)
		}
		s.status(Status{State: Connecting, Attempt: attempt})
		return s.consume(ctx, b, emit)
	}, b, func(err error, next time.Duration) {
		level.Warn(logger).Log("msg", "event stream disconnected", "err", err, "retry_in", next)
		s.status(Status{State: Disconnected, Attempt: attempt, Err: err, Retry: next})
	})
	if ctx.Err() != nil {
		s.status(Status{State: Closed})
		return nil
	}
	s.status(Status{State: Closed, Err: err})
	return errors.Wrapf(err, "event stream %s", s.URL)
}

// consume runs one connection to completion.
func (s *SSE) consume(ctx context.Context, b backoff.BackOff, emit func(window.Sample)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if s.lastEventID != "" {
		req.Header.Set("Last-Event-ID", s.lastEventID)
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNoContent:
		return backoff.Permanent(errors.New("server asked not to reconnect (204)"))
	case resp.StatusCode != http.StatusOK:
		return errors.Errorf("unexpected status %s", resp.Status)
	}

	b.Reset()
	s.status(Status{State: Connected})
	level.Info(s.logger()).Log("msg", "event stream connected", "url", s.URL)

	for ev, err := range sse.Read(resp.Body, nil) {
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		s.dispatch(ev, emit)
	}
	if ctx.Err() != nil {
		return backoff.Permanent(ctx.Err())
	}
	return errStreamEnded
}

// dispatch parses message events. Other event types and events without data
// are skipped; the retry field is ignored because reconnect pacing is ours.
func (s *SSE) dispatch(ev sse.Event, emit func(window.Sample)) {
	if ev.LastEventID != "" {
		s.lastEventID = ev.LastEventID
	}
	if (ev.Type != "" && ev.Type != "message") || ev.Data == "" {
		return
	}
	sample, err := ParsePayload([]byte(ev.Data))
	if err != nil {
		if s.OnDrop != nil {
			s.OnDrop([]byte(ev.Data), err)
		}
		return
	}
	if s.Gate.Paused() {
		return
	}
	emit(sample)
}

func (s *SSE) status(st Status) {
	if s.OnStatus != nil {
		s.OnStatus(st)
	}
}

func (s *SSE) logger() log.Logger {
	if s.Logger == nil {
		return log.NewNopLogger()
	}
	return s.Logger
}
