package stream

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/pkg/errors"

	"github.com/keilerkonzept/streamdash/window"
)

// JSONLines reads one payload per line from a file, or from stdin when Path
// is empty or "-" and stdin is not a terminal.
type JSONLines struct {
	Path string
	// Pace sleeps between records when not replaying.
	Pace time.Duration
	// Replay sleeps for the gap between consecutive record timestamps,
	// divided by ReplaySpeed and capped at ReplayMaxSleep when positive.
	Replay         bool
	ReplaySpeed    float64
	ReplayMaxSleep time.Duration
	Gate           *Gate

	OnDrop func(data []byte, err error)

	// Stdin replaces os.Stdin. It is treated as piped.
	Stdin io.Reader
}

func (j *JSONLines) fromStdin() bool { return j.Path == "" || j.Path == "-" }

// Available reports whether there is anything to read. An interactive
// terminal on stdin is not input.
func (j *JSONLines) Available() bool {
	return !j.fromStdin() || j.Stdin != nil || !term.IsTerminal(os.Stdin.Fd())
}

// Open returns the input to read. ok is false when there is nothing to read.
func (j *JSONLines) Open() (rc io.ReadCloser, ok bool, err error) {
	switch {
	case !j.fromStdin():
		f, err := os.Open(j.Path)
		if err != nil {
			return nil, false, errors.Wrap(err, "open input")
		}
		return f, true, nil
	case j.Stdin != nil:
		return io.NopCloser(j.Stdin), true, nil
	case !j.Available():
		return nil, false, nil
	}
	return io.NopCloser(os.Stdin), true, nil
}

func (j *JSONLines) Run(ctx context.Context, emit func(window.Sample)) error {
	r, ok, err := j.Open()
	if err != nil || !ok {
		return err
	}
	defer func() { _ = r.Close() }()
	return j.Read(ctx, r, emit)
}

// Read emits every well-formed line of r. Malformed lines are dropped.
func (j *JSONLines) Read(ctx context.Context, r io.Reader, emit func(window.Sample)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	speed := j.ReplaySpeed
	if speed <= 0 {
		speed = 1
	}
	var prev int64
	first := true
	for scanner.Scan() {
		if err := j.Gate.Wait(ctx); err != nil {
			return nil
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		sample, err := ParsePayload(line)
		if err != nil {
			if j.OnDrop != nil {
				j.OnDrop(append([]byte(nil), line...), err)
			}
			continue
		}

		var sleep time.Duration
		switch {
		case j.Replay && !first:
			sleep = time.Duration(float64(time.Duration(sample.Timestamp-prev)*time.Millisecond) / speed)
			if j.ReplayMaxSleep > 0 && sleep > j.ReplayMaxSleep {
				sleep = j.ReplayMaxSleep
			}
		case !j.Replay && !first:
			sleep = j.Pace
		}
		if !sleepCtx(ctx, sleep) {
			return nil
		}
		first = false
		prev = sample.Timestamp
		emit(sample)
	}
	return errors.Wrap(scanner.Err(), "read input")
}

// sleepCtx reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
