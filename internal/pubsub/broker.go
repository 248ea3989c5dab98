package pubsub

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const defaultBufferSize = 64

// Option configures a Broker.
type Option func(*options)

type options struct {
	buffer int
	now    func() time.Time
}

// WithBuffer sets the per-subscription channel capacity.
func WithBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.buffer = n
		}
	}
}

// WithNow sets the source of event timestamps, normally the engine's clock.
func WithNow(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

type subscription[T any] struct {
	ch      chan Event[T]
	dropped atomic.Uint64
}

// Broker fans each published event out to every live subscription.
// Slow subscribers lose events rather than stall the publisher, so engines can
// publish while holding their own locks. Losses are counted, see Dropped.
type Broker[T any] struct {
	mu      sync.RWMutex
	subs    map[<-chan Event[T]]*subscription[T]
	closed  bool
	opts    options
	dropped atomic.Uint64
}

// NewBroker creates a broker. Without options subscriptions buffer 64 events
// and timestamps come from time.Now.
func NewBroker[T any](opts ...Option) *Broker[T] {
	o := options{buffer: defaultBufferSize, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Broker[T]{
		subs: make(map[<-chan Event[T]]*subscription[T]),
		opts: o,
	}
}

// Subscribe returns a channel of future events. It is closed when ctx is
// cancelled or the broker closes; subscribing to a closed broker yields a
// closed channel.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event[T])
		close(ch)
		return ch
	}

	sub := &subscription[T]{ch: make(chan Event[T], b.opts.buffer)}
	b.subs[sub.ch] = sub

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.closed {
			return
		}
		delete(b.subs, sub.ch)
		close(sub.ch)
	}()

	return sub.ch
}

// Publish sends an event to every subscriber without blocking.
func (b *Broker[T]) Publish(eventType EventType, payload T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	event := Event[T]{
		Type:      eventType,
		Payload:   payload,
		Timestamp: b.opts.now(),
	}
	for _, sub := range b.subs {
		select {
		case sub.ch <- event:
		default:
			sub.dropped.Add(1)
			b.dropped.Add(1)
		}
	}
}

// Dropped reports how many events ch has missed because its buffer was full.
// A nil ch returns the total across all subscriptions, past and present.
func (b *Broker[T]) Dropped(ch <-chan Event[T]) uint64 {
	if ch == nil {
		return b.dropped.Load()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if sub, ok := b.subs[ch]; ok {
		return sub.dropped.Load()
	}
	return 0
}

// Close shuts down the broker and closes every subscription channel.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subs {
		close(sub.ch)
	}
	b.subs = nil
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
