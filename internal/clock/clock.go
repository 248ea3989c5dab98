// Package clock abstracts wall-clock time and periodic ticks so the timer and
// eye-care engines can be driven deterministically in tests.
package clock

import (
	"sync"
	"time"
)

// Clock abstracts time operations for testability.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker abstracts time.Ticker for testability.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Real implements Clock using the time package.
type Real struct{}

// Now returns the current time.
func (Real) Now() time.Time { return time.Now() }

// NewTicker creates a ticker firing every d.
func (Real) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

// Loop owns at most one live ticker and calls a callback on every tick.
// Starting the loop again replaces the previous ticker.
//
// A tick that was already received when Stop or Start ran is still delivered
// to the callback with its old generation; callers compare it with Current
// and discard stale ticks.
type Loop struct {
	clock  Clock
	period time.Duration

	mu     sync.Mutex
	gen    uint64
	ticker Ticker
	done   chan struct{}
}

// NewLoop returns a stopped Loop ticking every period on c.
func NewLoop(c Clock, period time.Duration) *Loop {
	if c == nil {
		c = Real{}
	}
	return &Loop{clock: c, period: period}
}

// Start cancels any running ticker and begins a new one. fn receives the
// generation of the ticker that produced the tick.
func (l *Loop) Start(fn func(gen uint64)) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stopLocked()
	l.gen++
	gen := l.gen
	ticker := l.clock.NewTicker(l.period)
	done := make(chan struct{})
	l.ticker = ticker
	l.done = done

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C():
				fn(gen)
			}
		}
	}()
	return gen
}

// Stop cancels the running ticker, if any. Ticks already in flight carry a
// generation that is no longer current.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopLocked()
}

func (l *Loop) stopLocked() {
	if l.ticker == nil {
		return
	}
	l.ticker.Stop()
	close(l.done)
	l.ticker = nil
	l.done = nil
	l.gen++
}

// Current reports whether gen belongs to the live ticker.
func (l *Loop) Current(gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ticker != nil && gen == l.gen
}

// Running reports whether a ticker is live.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ticker != nil
}
