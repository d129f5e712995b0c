// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

package rate

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count int
	until time.Time
}

// MemoryGate is a fixed-window in-process limiter.
type MemoryGate struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	span    time.Duration
	now     func() time.Time
}

// NewMemoryGate returns a gate admitting limit calls per key per span.
func NewMemoryGate(limit int, span time.Duration) *MemoryGate {
	return &MemoryGate{
		windows: make(map[string]*window),
		limit:   limit,
		span:    span,
		now:     time.Now,
	}
}

// Allow counts one attempt for key. It returns ErrRateLimited once the
// window allowance is spent; a fresh window opens when the old one ends.
func (g *MemoryGate) Allow(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	w, ok := g.windows[key]
	if !ok || now.After(w.until) {
		g.windows[key] = &window{count: 1, until: now.Add(g.span)}
		return nil
	}
	if w.count >= g.limit {
		return ErrRateLimited
	}
	w.count++
	return nil
}

// StartSweeper removes closed windows every interval until ctx is done.
func (g *MemoryGate) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				g.sweep()
			}
		}
	}()
}

func (g *MemoryGate) sweep() {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	for key, w := range g.windows {
		if now.After(w.until) {
			delete(g.windows, key)
		}
	}
}
