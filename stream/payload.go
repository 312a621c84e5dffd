// Package stream consumes the push channels that feed the window: a
// server-sent event stream and a JSON-lines file or pipe.
package stream

import (
	"context"
	"math"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/keilerkonzept/streamdash/window"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrMalformedPayload marks an event that was dropped at the parse boundary.
var ErrMalformedPayload = errors.New("malformed payload")

// Source delivers samples to emit until ctx is done or the source is
// exhausted. emit is called from the source's goroutine.
type Source interface {
	Run(ctx context.Context, emit func(window.Sample)) error
}

type payload struct {
	Timestamp *int64   `json:"timestamp"`
	Value     *float64 `json:"value"`
}

// ParsePayload decodes one `{"timestamp": <ms>, "value": <real>}` object.
// Missing fields and non-finite values are malformed.
func ParsePayload(data []byte) (window.Sample, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return window.Sample{}, errors.Wrap(ErrMalformedPayload, err.Error())
	}
	switch {
	case p.Timestamp == nil:
		return window.Sample{}, errors.Wrap(ErrMalformedPayload, "missing timestamp")
	case p.Value == nil:
		return window.Sample{}, errors.Wrap(ErrMalformedPayload, "missing value")
	case math.IsNaN(*p.Value) || math.IsInf(*p.Value, 0):
		return window.Sample{}, errors.Wrap(ErrMalformedPayload, "value is not finite")
	}
	return window.Sample{Timestamp: *p.Timestamp, Value: *p.Value}, nil
}
