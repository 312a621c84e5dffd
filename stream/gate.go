package stream

import (
	"context"
	"sync"
)

// Gate pauses ingestion. A nil *Gate is always open.
type Gate struct {
	mu     sync.Mutex
	paused bool
	resume chan struct{}
}

func (g *Gate) Paused() bool {
	if g == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

// Toggle flips the gate and returns the new paused state.
func (g *Gate) Toggle() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused {
		g.paused = false
		close(g.resume)
		return false
	}
	g.paused = true
	g.resume = make(chan struct{})
	return true
}

// Wait blocks while the gate is paused.
func (g *Gate) Wait(ctx context.Context) error {
	if g == nil {
		return ctx.Err()
	}
	for {
		g.mu.Lock()
		paused, resume := g.paused, g.resume
		g.mu.Unlock()
		if !paused {
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-resume:
		}
	}
}
