package stream

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/keilerkonzept/streamdash/window"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

func TestParsePayload(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want window.Sample
		err  bool
	}{
		{in: `{"timestamp":1700000000000,"value":98.5}`, want: window.Sample{Timestamp: 1700000000000, Value: 98.5}},
		{in: `{"value":51,"timestamp":5}`, want: window.Sample{Timestamp: 5, Value: 51}},
		{in: `{"timestamp":5,"value":0}`, want: window.Sample{Timestamp: 5}},
		{in: `{"timestamp":5}`, err: true},
		{in: `{"value":5}`, err: true},
		{in: `{"timestamp":"now","value":5}`, err: true},
		{in: `{"timestamp":1.5,"value":5}`, err: true},
		{in: `not json`, err: true},
		{in: ``, err: true},
	} {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParsePayload([]byte(tc.in))
			if tc.err {
				require.ErrorIs(t, err, ErrMalformedPayload)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

type collector struct {
	mu      sync.Mutex
	samples []window.Sample
	notify  chan struct{}
}

func newCollector() *collector { return &collector{notify: make(chan struct{}, 1024)} }

func (c *collector) emit(s window.Sample) {
	c.mu.Lock()
	c.samples = append(c.samples, s)
	c.mu.Unlock()
	c.notify <- struct{}{}
}

func (c *collector) got() []window.Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]window.Sample(nil), c.samples...)
}

func (c *collector) waitFor(t *testing.T, n int) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for len(c.got()) < n {
		select {
		case <-c.notify:
		case <-deadline:
			t.Fatalf("got %d samples, want %d", len(c.got()), n)
		}
	}
}

func writeEvents(w http.ResponseWriter, events ...string) {
	for _, ev := range events {
		_, _ = fmt.Fprint(w, ev)
	}
	w.(http.Flusher).Flush()
}

func TestSSEParsesAndDropsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		writeEvents(w,
			": keepalive\n\n",
			"data: {\"timestamp\":1,\"value\":60}\n\n",
			"data: garbage\n\n",
			"event: ping\ndata: {\"timestamp\":2,\"value\":70}\n\n",
			"id: 7\r\ndata: {\"timestamp\":3,\r\ndata: \"value\":80}\r\n\r\n",
		)
		<-r.Context().Done()
	}))
	defer srv.Close()

	var drops atomic.Int32
	c := newCollector()
	ctx, cancel := context.WithCancel(context.Background())
	s := &SSE{URL: srv.URL, OnDrop: func(_ []byte, err error) {
		assert.ErrorIs(t, err, ErrMalformedPayload)
		drops.Add(1)
	}}
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, c.emit) }()

	c.waitFor(t, 2)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []window.Sample{{Timestamp: 1, Value: 60}, {Timestamp: 3, Value: 80}}, c.got())
	assert.Equal(t, int32(1), drops.Load())
	assert.Equal(t, "7", s.lastEventID)
}

func TestSSEReconnects(t *testing.T) {
	var conns atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := conns.Add(1)
		w.Header().Set("Content-Type", "text/event-stream")
		writeEvents(w, fmt.Sprintf("data: {\"timestamp\":%d,\"value\":100}\n\n", n))
		if n >= 3 {
			<-r.Context().Done()
		}
	}))
	defer srv.Close()

	var mu sync.Mutex
	var states []State
	c := newCollector()
	ctx, cancel := context.WithCancel(context.Background())
	s := &SSE{
		URL:             srv.URL,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		OnStatus: func(st Status) {
			mu.Lock()
			states = append(states, st.State)
			mu.Unlock()
		},
	}
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, c.emit) }()

	c.waitFor(t, 3)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, uint64(2), s.Reconnects())
	assert.Equal(t, []int64{1, 2, 3}, []int64{c.got()[0].Timestamp, c.got()[1].Timestamp, c.got()[2].Timestamp})
	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, states, Disconnected)
	assert.Equal(t, Closed, states[len(states)-1])
}

func TestSSEResumesFromLastEventID(t *testing.T) {
	var conns atomic.Int32
	ids := make(chan string, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids <- r.Header.Get("Last-Event-ID")
		if conns.Add(1) == 1 {
			writeEvents(w,
				"retry: 60000\n\n",
				"event: tick\n\n",
				"id: 41\ndata: {\"timestamp\":1,\"value\":60}\n\n",
			)
			return
		}
		writeEvents(w, "data: {\"timestamp\":2,\"value\":70}\n\n")
		<-r.Context().Done()
	}))
	defer srv.Close()

	var drops atomic.Int32
	c := newCollector()
	ctx, cancel := context.WithCancel(context.Background())
	s := &SSE{
		URL:             srv.URL,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
		OnDrop:          func([]byte, error) { drops.Add(1) },
	}
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, c.emit) }()

	c.waitFor(t, 2)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, "", <-ids)
	assert.Equal(t, "41", <-ids)
	assert.Equal(t, "41", s.lastEventID)
	assert.Zero(t, drops.Load(), "events without data are skipped, not dropped")
}

func TestSSEGivesUpAfterMaxRetries(t *testing.T) {
	var conns atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conns.Add(1)
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := &SSE{URL: srv.URL, MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
	err := s.Run(context.Background(), func(window.Sample) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Equal(t, int32(3), conns.Load())
}

func TestSSENoContentStops(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := &SSE{URL: srv.URL, InitialInterval: time.Millisecond}
	err := s.Run(context.Background(), func(window.Sample) {})
	require.Error(t, err)
	assert.Equal(t, uint64(0), s.Reconnects())
}

func TestSSEPausedDropsSamples(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEvents(w, "data: {\"timestamp\":1,\"value\":60}\n\n")
		<-r.Context().Done()
	}))
	defer srv.Close()

	gate := &Gate{}
	gate.Toggle()
	connected := make(chan struct{})
	c := newCollector()
	ctx, cancel := context.WithCancel(context.Background())
	s := &SSE{URL: srv.URL, Gate: gate, OnStatus: func(st Status) {
		if st.State == Connected {
			close(connected)
		}
	}}
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, c.emit) }()
	<-connected
	cancel()
	require.NoError(t, <-done)
	assert.Empty(t, c.got())
}

func TestJSONLines(t *testing.T) {
	in := strings.Join([]string{
		`{"timestamp":1000,"value":60}`,
		``,
		`{"timestamp":"x"}`,
		`  {"timestamp":1100,"value":61}  `,
	}, "\n")
	var dropped []string
	j := &JSONLines{OnDrop: func(data []byte, _ error) { dropped = append(dropped, string(data)) }}
	c := newCollector()
	require.NoError(t, j.Read(context.Background(), strings.NewReader(in), c.emit))
	assert.Equal(t, []window.Sample{{Timestamp: 1000, Value: 60}, {Timestamp: 1100, Value: 61}}, c.got())
	assert.Equal(t, []string{`{"timestamp":"x"}`}, dropped)
}

func TestJSONLinesReplay(t *testing.T) {
	in := "{\"timestamp\":0,\"value\":60}\n{\"timestamp\":40,\"value\":61}\n{\"timestamp\":100040,\"value\":62}\n"
	j := &JSONLines{Replay: true, ReplaySpeed: 2, ReplayMaxSleep: 30 * time.Millisecond, Stdin: strings.NewReader(in)}
	c := newCollector()
	start := time.Now()
	require.NoError(t, j.Run(context.Background(), c.emit))
	elapsed := time.Since(start)
	assert.Len(t, c.got(), 3)
	// 20ms for the first gap, 30ms (capped) for the second.
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, 5*time.Second)
}

func TestJSONLinesCancelledWhilePaused(t *testing.T) {
	gate := &Gate{}
	gate.Toggle()
	ctx, cancel := context.WithCancel(context.Background())
	j := &JSONLines{Gate: gate, Stdin: strings.NewReader("{\"timestamp\":0,\"value\":60}\n")}
	c := newCollector()
	done := make(chan error, 1)
	go func() { done <- j.Run(ctx, c.emit) }()
	cancel()
	require.NoError(t, <-done)
	assert.Empty(t, c.got())
}

func TestGate(t *testing.T) {
	var nilGate *Gate
	assert.False(t, nilGate.Paused())
	require.NoError(t, nilGate.Wait(context.Background()))

	g := &Gate{}
	assert.True(t, g.Toggle())
	assert.True(t, g.Paused())

	released := make(chan error, 1)
	go func() { released <- g.Wait(context.Background()) }()
	select {
	case <-released:
		t.Fatal("wait returned while paused")
	case <-time.After(10 * time.Millisecond):
	}
	assert.False(t, g.Toggle())
	require.NoError(t, <-released)
}
