package events

import (
	"sync"

	"go.uber.org/zap"
)

const subscriberBuffer = 256

// Bus fans events out to in-process subscribers (live dashboards, tracers).
// Each subscriber gets a bounded buffer; a slow subscriber loses events
// rather than blocking the invocation path.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
	logger *zap.Logger
}

// NewBus creates an empty Bus.
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{subs: make(map[int]chan Event), logger: logger}
}

// Subscribe registers a consumer. The returned cancel func must be called
// when the consumer is done; the channel is closed by cancel or by Close.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Emit delivers the event to every subscriber that has buffer room.
func (b *Bus) Emit(e *Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	for id, ch := range b.subs {
		select {
		case ch <- *e:
		default:
			b.logger.Warn("event bus subscriber buffer full, dropping event",
				zap.Int("subscriber", id),
				zap.String("type", e.Type),
			)
		}
	}
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
