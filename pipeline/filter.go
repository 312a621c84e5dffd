// Package pipeline derives chart views from window snapshots: filtering,
// time-bucket averaging and the time x value occupancy histogram.
package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/keilerkonzept/streamdash/window"
)

// Calibration of the sample generator's output range.
const (
	DomainMin  = 50.0
	DomainMax  = 150.0
	DomainSpan = DomainMax - DomainMin
)

type TimeRange int

const (
	Live TimeRange = iota
	Last1Min
	Last5Min
)

// Window is the look-back of the range; zero for Live.
func (r TimeRange) Window() time.Duration {
	switch r {
	case Last1Min:
		return time.Minute
	case Last5Min:
		return 5 * time.Minute
	}
	return 0
}

func (r TimeRange) String() string {
	switch r {
	case Last1Min:
		return "1m"
	case Last5Min:
		return "5m"
	}
	return "live"
}

// Next cycles Live -> 1m -> 5m -> Live.
func (r TimeRange) Next() TimeRange {
	return (r + 1) % 3
}

func ParseTimeRange(s string) (TimeRange, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "live":
		return Live, nil
	case "1m", "1min":
		return Last1Min, nil
	case "5m", "5min":
		return Last5Min, nil
	}
	return Live, fmt.Errorf("unknown time range %q (want live, 1m or 5m)", s)
}

var ErrInvalidRange = errors.New("value range min must be below max")

// ValueRange is an inclusive [Min, Max] band with Min < Max.
type ValueRange struct {
	Min float64
	Max float64
}

var DefaultValueRange = ValueRange{Min: DomainMin, Max: DomainMax}

func NewValueRange(min, max float64) (ValueRange, error) {
	r := ValueRange{Min: min, Max: max}
	if !r.Valid() {
		return DefaultValueRange, errors.Wrapf(ErrInvalidRange, "got [%g, %g]", min, max)
	}
	return r, nil
}

// ClampToDomain pulls v into [DomainMin, DomainMax], the range the value
// controls can select.
func ClampToDomain(v float64) float64 {
	return max(DomainMin, min(v, DomainMax))
}

func (r ValueRange) Valid() bool { return r.Min < r.Max }

func (r ValueRange) Contains(v float64) bool { return v >= r.Min && v <= r.Max }

func (r ValueRange) IsDefault() bool { return r == DefaultValueRange }

func (r ValueRange) String() string { return fmt.Sprintf("%g..%g", r.Min, r.Max) }

// Filter keeps the samples that pass both the time and the value predicate,
// preserving order. When neither predicate applies the input is returned as
// is, so callers must not modify the result.
func Filter(samples []window.Sample, tr TimeRange, vr ValueRange, now time.Time) []window.Sample {
	timed := tr != Live
	valued := !vr.IsDefault()
	if !timed && !valued {
		return samples
	}
	cutoff := now.UnixMilli() - tr.Window().Milliseconds()
	out := make([]window.Sample, 0, len(samples))
	for _, s := range samples {
		if timed && s.Timestamp <= cutoff {
			continue
		}
		if valued && !vr.Contains(s.Value) {
			continue
		}
		out = append(out, s)
	}
	return out
}
