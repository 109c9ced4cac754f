// Package eventbus implements a small in-process typed publish/subscribe
// bus used to decouple the hostname sources, the reconciler, and the
// orphan reaper from one another.
//
// Each subscriber owns a buffered channel and a dedicated goroutine; a
// slow or panicking handler only ever affects its own subscription, never
// other subscribers or the publisher.
package eventbus

import (
	"log/slog"
	"reflect"
	"sync"
)

// DefaultBufferSize is the per-subscriber channel capacity used when a Bus
// is constructed without WithBufferSize.
const DefaultBufferSize = 32

// Bus is a typed, in-process event bus. The zero value is not usable; use
// New.
type Bus struct {
	mu         sync.RWMutex
	subs       map[reflect.Type][]*subscription
	bufferSize int
	logger     *slog.Logger

	closeOnce sync.Once
	closed    chan struct{}
}

type subscription struct {
	ch     chan any
	done   chan struct{}
	stopFn func()
}

// Option configures a Bus.
type Option func(*Bus)

// WithBufferSize sets the per-subscriber channel capacity.
func WithBufferSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.bufferSize = n
		}
	}
}

// WithLogger sets the logger used to report dropped events and recovered
// handler panics.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates a Bus ready to accept subscriptions and publishes.
func New(opts ...Option) *Bus {
	b := &Bus{
		subs:       make(map[reflect.Type][]*subscription),
		bufferSize: DefaultBufferSize,
		logger:     slog.Default(),
		closed:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers handler to be called, on its own goroutine, for
// every event of type T published after this call returns. The returned
// func unsubscribes and stops the subscriber's goroutine.
func Subscribe[T any](b *Bus, handler func(T)) func() {
	t := reflect.TypeOf((*T)(nil)).Elem()

	sub := &subscription{
		ch:   make(chan any, b.bufferSize),
		done: make(chan struct{}),
	}

	go func() {
		defer close(sub.done)
		for {
			select {
			case ev, ok := <-sub.ch:
				if !ok {
					return
				}
				dispatch(b.logger, t, handler, ev.(T))
			case <-b.closed:
				return
			}
		}
	}()

	b.mu.Lock()
	b.subs[t] = append(b.subs[t], sub)
	b.mu.Unlock()

	sub.stopFn = func() {
		b.mu.Lock()
		list := b.subs[t]
		for i, s := range list {
			if s == sub {
				b.subs[t] = append(list[:i], list[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
		close(sub.ch)
		<-sub.done
	}

	return sub.stopFn
}

func dispatch[T any](logger *slog.Logger, t reflect.Type, handler func(T), ev T) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("eventbus: recovered from panic in subscriber",
				"event_type", t.String(), "panic", r)
		}
	}()
	handler(ev)
}

// Publish delivers event to every current subscriber of type T. Delivery
// is non-blocking: if a subscriber's channel is full, the event is
// dropped for that subscriber and logged, so one slow consumer can never
// stall the publisher or other subscribers.
func Publish[T any](b *Bus, event T) {
	t := reflect.TypeOf((*T)(nil)).Elem()

	b.mu.RLock()
	subs := make([]*subscription, len(b.subs[t]))
	copy(subs, b.subs[t])
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.ch <- event:
		default:
			b.logger.Warn("eventbus: dropping event, subscriber buffer full",
				"event_type", t.String())
		}
	}
}

// Close stops all subscriber goroutines. It does not close the Bus to
// further Subscribe calls, but publishes after Close are no longer
// delivered to goroutines that have exited.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		close(b.closed)
	})
}
