package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keilerkonzept/streamdash/pipeline"
)

func TestDurationRing(t *testing.T) {
	r := newDurationRing(3)
	assert.Equal(t, DurationStats{}, r.snapshot())

	for _, d := range []time.Duration{4, 1, 7, 2} {
		r.add(d * time.Millisecond)
	}
	s := r.snapshot()
	assert.Equal(t, 2*time.Millisecond, s.Last)
	assert.Equal(t, 7*time.Millisecond, s.Max)
	assert.Equal(t, 10*time.Millisecond/3, s.Avg)
	assert.Equal(t, 3, s.N)
}

func TestSnapshot(t *testing.T) {
	m := New(8)
	base := time.UnixMilli(1_700_000_000_000)
	for i := range 11 {
		at := base.Add(time.Duration(i) * 100 * time.Millisecond)
		m.ObserveIngest(at, at.UnixMilli(), i+1)
	}
	m.ObserveDrop()
	m.ObserveReconnect()
	m.ObserveFrame()
	m.ObserveFrame()
	m.ObserveFPS(58)
	m.ObserveDerive(time.Millisecond, pipeline.Full)
	m.ObserveDerive(3*time.Millisecond, pipeline.Partial)
	m.ObserveDerive(time.Hour, pipeline.Cached)

	s := m.Snapshot(base.Add(1500 * time.Millisecond))
	assert.Equal(t, uint64(11), s.Records)
	assert.Equal(t, uint64(11), s.AvgRps)
	assert.Equal(t, uint64(1), s.Dropped)
	assert.Equal(t, uint64(1), s.Reconnects)
	assert.Equal(t, uint64(2), s.Frames)
	assert.Equal(t, 58, s.FPS)
	assert.Equal(t, 500*time.Millisecond, s.IngestLag)
	assert.Equal(t, uint64(1), s.Full)
	assert.Equal(t, uint64(1), s.Partial)
	assert.Equal(t, uint64(1), s.Cached)
	assert.Equal(t, 3*time.Millisecond, s.Derive.Max)
	assert.Equal(t, 2, s.Derive.N)
}

func TestPrometheus(t *testing.T) {
	m := New(4)
	m.ObserveIngest(time.Now(), time.Now().UnixMilli(), 1)
	m.ObserveIngest(time.Now(), time.Now().UnixMilli(), 2)
	m.ObserveDrop()
	m.ObserveFPS(42)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "streamdash_samples_ingested_total 2")
	assert.Contains(t, string(body), "streamdash_frames_per_second 42")
	assert.Contains(t, string(body), "streamdash_payloads_dropped_total 1")
	assert.Contains(t, string(body), "streamdash_window_samples 2")
}
