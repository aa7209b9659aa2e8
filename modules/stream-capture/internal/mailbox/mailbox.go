// Package mailbox provides a single-slot, overwrite-on-put buffer between a
// producer callback and one blocking consumer.
package mailbox

import (
	"context"
	"io"
	"sync"
)

// Stats reports mailbox activity
type Stats struct {
	Puts             uint64
	Takes            uint64
	TotalDrops       uint64 // items overwritten before they were taken
	ConsecutiveDrops uint64 // current streak, reset on Take
}

// Mailbox holds at most one item with sync.Cond blocking semantics.
//
// Semantics:
//   - Put never blocks; a newer item replaces an untaken one
//   - the replaced item is handed to discard (so frames return to their owner)
//   - Take blocks until an item arrives, the mailbox closes or ctx is done
//   - after Close, a pending item is still delivered, then Take returns the close error
//
// Thread-safety: Put and Close are safe for concurrent calls. Take MUST be
// called from a single consumer goroutine.
type Mailbox[T any] struct {
	mu       sync.Mutex
	cond     *sync.Cond
	item     T
	has      bool
	closed   bool
	closeErr error
	discard  func(T)
	stats    Stats
}

// New creates an empty mailbox. discard may be nil.
func New[T any](discard func(T)) *Mailbox[T] {
	m := &Mailbox[T]{discard: discard}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Put stores item, replacing (and discarding) any untaken item.
//
// Returns false if the mailbox is closed, in which case item is discarded.
func (m *Mailbox[T]) Put(item T) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.drop(item)
		return false
	}

	var old T
	hadOld := m.has
	if hadOld {
		old = m.item
		m.stats.TotalDrops++
		m.stats.ConsecutiveDrops++
	}
	m.item, m.has = item, true
	m.stats.Puts++
	m.cond.Signal()
	m.mu.Unlock()

	if hadOld {
		m.drop(old)
	}
	return true
}

// Take blocks until an item is available.
//
// Returns ctx.Err() if ctx is done first, or the close error (io.EOF for a
// normal close) once the mailbox is closed and empty.
func (m *Mailbox[T]) Take(ctx context.Context) (T, error) {
	var zero T

	// Wake the waiter when ctx is done. Broadcast under the lock so the
	// wake-up cannot slip between the ctx check and Wait.
	stop := context.AfterFunc(ctx, func() {
		m.mu.Lock()
		m.cond.Broadcast()
		m.mu.Unlock()
	})
	defer stop()

	m.mu.Lock()
	defer m.mu.Unlock()

	for !m.has && !m.closed && ctx.Err() == nil {
		m.cond.Wait()
	}

	if ctx.Err() != nil {
		return zero, ctx.Err()
	}
	if m.has {
		item := m.item
		m.item, m.has = zero, false
		m.stats.Takes++
		m.stats.ConsecutiveDrops = 0
		return item, nil
	}
	return zero, m.closeErr
}

// Close marks the mailbox closed and wakes the consumer. A nil err means a
// normal end of stream and is reported as io.EOF. Only the first call has effect.
func (m *Mailbox[T]) Close(err error) {
	if err == nil {
		err = io.EOF
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.closeErr = err
	m.cond.Broadcast()
}

// Drain removes and discards a pending item, if any.
func (m *Mailbox[T]) Drain() {
	var zero T
	m.mu.Lock()
	item, had := m.item, m.has
	m.item, m.has = zero, false
	m.mu.Unlock()
	if had {
		m.drop(item)
	}
}

// Stats returns a snapshot of mailbox counters
func (m *Mailbox[T]) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

func (m *Mailbox[T]) drop(item T) {
	if m.discard != nil {
		m.discard(item)
	}
}
