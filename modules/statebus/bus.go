package statebus

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrSubscriberExists is returned when Subscribe is called with a duplicate id.
	ErrSubscriberExists = errors.New("statebus: subscriber id already exists")

	// ErrSubscriberNotFound is returned when Unsubscribe is called with unknown id.
	ErrSubscriberNotFound = errors.New("statebus: subscriber id not found")

	// ErrBusClosed is returned when operations are attempted on a closed bus.
	ErrBusClosed = errors.New("statebus: bus is closed")

	// ErrNilChannel is returned when Subscribe is called with a nil channel.
	ErrNilChannel = errors.New("statebus: nil channel provided")
)

// BusStats contains global and per-subscriber metrics.
type BusStats struct {
	// TotalPublished is the number of Publish() calls
	TotalPublished uint64
	// TotalSent is the sum of snapshots delivered to all subscribers
	TotalSent uint64
	// TotalDropped is the sum of snapshots dropped across all subscribers
	TotalDropped uint64
	// Subscribers contains per-subscriber breakdown
	Subscribers map[string]SubscriberStats
}

// SubscriberStats tracks metrics for a single subscriber.
type SubscriberStats struct {
	Sent    uint64
	Dropped uint64
}

type subscriber[T any] struct {
	ch     chan<- T
	latest *Latest[T]
	sent   atomic.Uint64
	drops  atomic.Uint64
}

// Bus distributes snapshots of T to multiple subscribers.
type Bus[T any] struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber[T]
	closed      bool

	// Global counter (atomic - no lock needed in Publish)
	totalPublished atomic.Uint64
}

// New creates an empty bus.
func New[T any]() *Bus[T] {
	return &Bus[T]{subscribers: make(map[string]*subscriber[T])}
}

// Subscribe registers a channel to receive snapshots.
func (b *Bus[T]) Subscribe(id string, ch chan<- T) error {
	if ch == nil {
		return ErrNilChannel
	}
	return b.add(id, &subscriber[T]{ch: ch})
}

// SubscribeLatest registers a latest-only receiver. It never drops: each
// publish replaces the held snapshot.
func (b *Bus[T]) SubscribeLatest(id string) (*Latest[T], error) {
	l := newLatest[T]()
	if err := b.add(id, &subscriber[T]{latest: l}); err != nil {
		return nil, err
	}
	return l, nil
}

func (b *Bus[T]) add(id string, sub *subscriber[T]) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	if _, exists := b.subscribers[id]; exists {
		return ErrSubscriberExists
	}
	b.subscribers[id] = sub
	return nil
}

// Unsubscribe removes a subscriber by id. A latest-only receiver is closed;
// subscriber channels are never closed by the bus.
func (b *Bus[T]) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	sub, exists := b.subscribers[id]
	if !exists {
		return ErrSubscriberNotFound
	}
	if sub.latest != nil {
		sub.latest.Close()
	}
	delete(b.subscribers, id)
	return nil
}

// Publish sends v to all subscribers (non-blocking).
//
// For each subscriber:
//   - channel with space: snapshot sent, Sent incremented
//   - channel full: snapshot dropped, Dropped incremented
//   - latest-only: held snapshot replaced, Sent incremented
//
// Publish on a closed bus is a no-op.
func (b *Bus[T]) Publish(v T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	b.totalPublished.Add(1)

	for _, sub := range b.subscribers {
		if sub.latest != nil {
			sub.latest.set(v)
			sub.sent.Add(1)
			continue
		}
		select {
		case sub.ch <- v:
			sub.sent.Add(1)
		default:
			sub.drops.Add(1)
		}
	}
}

// Stats returns a statistics snapshot.
func (b *Bus[T]) Stats() BusStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := BusStats{
		TotalPublished: b.totalPublished.Load(),
		Subscribers:    make(map[string]SubscriberStats, len(b.subscribers)),
	}
	for id, sub := range b.subscribers {
		s := SubscriberStats{Sent: sub.sent.Load(), Dropped: sub.drops.Load()}
		result.TotalSent += s.Sent
		result.TotalDropped += s.Dropped
		result.Subscribers[id] = s
	}
	return result
}

// Close stops the bus. Latest-only receivers are closed; channels are left
// to their owners. Idempotent.
func (b *Bus[T]) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for _, sub := range b.subscribers {
		if sub.latest != nil {
			sub.latest.Close()
		}
	}
	return nil
}
