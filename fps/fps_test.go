package fps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, time.November, 3, 10, 0, 0, 0, time.UTC)

func drive(m *Monitor, start time.Time, frames int, every time.Duration) (reports []int, end time.Time) {
	now := start
	for i := 0; i < frames; i++ {
		if fps, ok := m.Tick(now); ok {
			reports = append(reports, fps)
		}
		now = now.Add(every)
	}
	return reports, now
}

func TestMonitorReportsOncePerSecond(t *testing.T) {
	m := New(time.Second, 8)
	reports, _ := drive(m, t0, 60*3+2, time.Second/60)
	require.Len(t, reports, 2)
	for _, r := range reports {
		assert.InDelta(t, 60, r, 1)
	}
	assert.Equal(t, reports[len(reports)-1], m.FPS())
}

func TestMonitorSlowFrames(t *testing.T) {
	m := New(time.Second, 8)
	reports, _ := drive(m, t0, 20, 250*time.Millisecond)
	require.NotEmpty(t, reports)
	assert.Equal(t, 4, reports[0])
}

func TestMonitorReportsNeverBlock(t *testing.T) {
	m := New(10*time.Millisecond, 4)
	done := make(chan struct{})
	go func() {
		drive(m, t0, 10000, 3*time.Millisecond)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Tick blocked with nobody reading reports")
	}
	select {
	case v := <-m.Reports():
		assert.Equal(t, m.FPS(), v)
	default:
		t.Fatal("latest report missing")
	}
}

func TestHistory(t *testing.T) {
	m := New(time.Second, 3)
	assert.Zero(t, m.History().N)
	for _, v := range []int{10, 20, 30, 40} {
		m.history.add(v)
	}
	st := m.History()
	assert.Equal(t, []int{20, 30, 40}, st.Readings)
	assert.Equal(t, 40, st.Last)
	assert.Equal(t, 20, st.Min)
	assert.Equal(t, 40, st.Max)
	assert.InDelta(t, 30, st.Avg, 1e-9)
}

func TestGradeOf(t *testing.T) {
	assert.Equal(t, Good, GradeOf(60))
	assert.Equal(t, Good, GradeOf(55))
	assert.Equal(t, Fair, GradeOf(54))
	assert.Equal(t, Fair, GradeOf(40))
	assert.Equal(t, Poor, GradeOf(39))
}
