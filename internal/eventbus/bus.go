// Package eventbus fans engine signals (reminder.*, dispatch.*,
// restore.*) out to in-process consumers such as the delivery recorder.
// Publishers never block and never learn who is listening; a slow
// consumer loses events rather than stalling a send path.
package eventbus

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event is one engine signal. Type is a dotted name like "dispatch.sent";
// Data carries the payload struct the publishing package documents for
// that type.
type Event struct {
	Type string
	Time time.Time
	Data any
}

type Bus interface {
	// Publish delivers e to every matching subscriber without blocking.
	Publish(e Event)
	// Subscribe returns a buffered channel receiving events whose Type is
	// in types; with no types it receives everything. The returned func
	// unsubscribes and closes the channel.
	Subscribe(buffer int, types ...string) (<-chan Event, func())
}

func New() Bus {
	return &memBus{subs: map[uint64]*subscriber{}}
}

type subscriber struct {
	ch      chan Event
	types   map[string]struct{} // empty means all
	dropped atomic.Uint64
}

func (s *subscriber) wants(eventType string) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[eventType]
	return ok
}

// offer attempts a non-blocking delivery. A concurrently closed channel
// is tolerated; the event is counted as dropped either way.
func (s *subscriber) offer(e Event) {
	defer func() {
		if recover() != nil {
			s.dropped.Add(1)
		}
	}()
	select {
	case s.ch <- e:
	default:
		s.dropped.Add(1)
	}
}

type memBus struct {
	mu   sync.RWMutex
	subs map[uint64]*subscriber
	seq  atomic.Uint64
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	b.mu.RLock()
	targets := make([]*subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		if s.wants(e.Type) {
			targets = append(targets, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range targets {
		s.offer(e)
	}
}

func (b *memBus) Subscribe(buffer int, types ...string) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	sub := &subscriber{ch: make(chan Event, buffer)}
	if len(types) > 0 {
		sub.types = make(map[string]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}

	id := b.seq.Add(1)
	b.mu.Lock()
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, unsub
}
