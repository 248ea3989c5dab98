package clock

import (
	"sync"
	"time"
)

// Fake is a manually driven Clock. Advance moves time; Tick delivers one tick
// to every live ticker without moving time.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

// NewFake returns a Fake starting at start. A zero start uses a fixed date.
func NewFake(start time.Time) *Fake {
	if start.IsZero() {
		start = time.Date(2026, 1, 17, 12, 0, 0, 0, time.UTC)
	}
	return &Fake{now: start}
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// NewTicker registers a ticker that only fires on Tick.
func (f *Fake) NewTicker(d time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTicker{ch: make(chan time.Time, 1), period: d}
	f.tickers = append(f.tickers, t)
	return t
}

// Advance moves time forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// Set jumps to t.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

// Tick sends the current time to every live ticker. A ticker whose previous
// tick has not been consumed yet drops this one, like time.Ticker.
func (f *Fake) Tick() {
	f.mu.Lock()
	now := f.now
	live := f.liveLocked()
	f.mu.Unlock()

	for _, t := range live {
		select {
		case t.ch <- now:
		default:
		}
	}
}

// Tickers returns the number of live tickers.
func (f *Fake) Tickers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.liveLocked())
}

func (f *Fake) liveLocked() []*fakeTicker {
	live := f.tickers[:0]
	for _, t := range f.tickers {
		if !t.isStopped() {
			live = append(live, t)
		}
	}
	f.tickers = live
	return append([]*fakeTicker(nil), live...)
}

type fakeTicker struct {
	mu      sync.Mutex
	ch      chan time.Time
	period  time.Duration
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *fakeTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}
