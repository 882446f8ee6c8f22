// Package scheduler drives the recorder's per-tick callback, either from a
// timer goroutine or from explicit host ticks.
package scheduler

import (
	"context"
	"sync"
	"time"
)

// Scheduler runs a single periodic callback.
// Unregister must be safe to call from inside the callback.
type Scheduler interface {
	Register(fn func())
	Unregister()
}

// Ticker calls the registered callback on a fixed interval from its own goroutine.
type Ticker struct {
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewTicker creates a Ticker. Non-positive intervals default to 16ms.
func NewTicker(interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &Ticker{interval: interval}
}

// Interval returns the tick interval.
func (t *Ticker) Interval() time.Duration {
	return t.interval
}

// Register replaces any running callback with fn.
func (t *Ticker) Register(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel

	go t.run(ctx, fn)
}

// Unregister stops the callback. It does not wait for an in-flight call.
func (t *Ticker) Unregister() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

func (t *Ticker) run(ctx context.Context, fn func()) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// a tick can race with cancellation; prefer cancellation
			if ctx.Err() != nil {
				return
			}
			fn()
		}
	}
}

// Manual runs the registered callback only when Tick is called, which lets
// the host's own frame loop drive sampling.
type Manual struct {
	mu sync.Mutex
	fn func()
}

// NewManual creates a Manual scheduler.
func NewManual() *Manual {
	return &Manual{}
}

// Register sets the callback.
func (m *Manual) Register(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fn = fn
}

// Unregister clears the callback.
func (m *Manual) Unregister() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fn = nil
}

// Active reports whether a callback is registered.
func (m *Manual) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fn != nil
}

// Tick invokes the callback once. It returns false when nothing is registered.
func (m *Manual) Tick() bool {
	m.mu.Lock()
	fn := m.fn
	m.mu.Unlock()

	if fn == nil {
		return false
	}
	fn()
	return true
}
