// Package events fans session events out to NATS, Redis, websocket clients
// and the match history.
package events

import (
	"context"
	"log"
	"sync"
	"time"

	"battleship/internal/session"
)

// Sink consumes events delivered by the Bus
type Sink interface {
	Name() string
	Handle(ctx context.Context, e session.Event) error
}

// Bus decouples the session lock from slow sinks. Publish never blocks; events
// that do not fit in the buffer are dropped and counted.
type Bus struct {
	events  chan session.Event
	timeout time.Duration

	mu      sync.Mutex
	sinks   []Sink
	dropped int
}

// NewBus creates a bus buffering up to size events
func NewBus(size int, sinks ...Sink) *Bus {
	if size <= 0 {
		size = 256
	}
	return &Bus{
		events:  make(chan session.Event, size),
		timeout: 5 * time.Second,
		sinks:   sinks,
	}
}

// Add registers another sink
func (b *Bus) Add(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

// Publish queues e for delivery
func (b *Bus) Publish(e session.Event) {
	select {
	case b.events <- e:
	default:
		b.mu.Lock()
		b.dropped++
		b.mu.Unlock()
		log.Printf("[Events] Buffer full, dropped %s event", e.Kind)
	}
}

// Dropped returns how many events did not fit in the buffer
func (b *Bus) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Run delivers events until ctx is cancelled, then flushes what is queued
func (b *Bus) Run(ctx context.Context) {
	for {
		select {
		case e := <-b.events:
			b.deliver(ctx, e)
		case <-ctx.Done():
			b.flush()
			return
		}
	}
}

func (b *Bus) flush() {
	for {
		select {
		case e := <-b.events:
			b.deliver(context.Background(), e)
		default:
			return
		}
	}
}

func (b *Bus) deliver(ctx context.Context, e session.Event) {
	b.mu.Lock()
	sinks := append([]Sink(nil), b.sinks...)
	b.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	for _, s := range sinks {
		if err := s.Handle(ctx, e); err != nil {
			log.Printf("[Events] %s failed on %s event: %v", s.Name(), e.Kind, err)
		}
	}
}
