package statebus

import (
	"context"
	"sync"
)

// Latest holds the most recent snapshot for one subscriber.
type Latest[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	value  T
	has    bool
	seq    uint64
	closed bool
}

func newLatest[T any]() *Latest[T] {
	l := &Latest[T]{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func (l *Latest[T]) set(v T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.value, l.has = v, true
	l.seq++
	l.cond.Broadcast()
}

// TryReceive returns the newest snapshot without blocking.
func (l *Latest[T]) TryReceive() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value, l.has
}

// WaitNewer blocks until a snapshot newer than after arrives and returns it
// with its sequence number. Pass 0 to wait for the first snapshot. Returns
// false when the receiver is closed or ctx is done.
func (l *Latest[T]) WaitNewer(ctx context.Context, after uint64) (T, uint64, bool) {
	stop := context.AfterFunc(ctx, func() {
		l.mu.Lock()
		l.cond.Broadcast()
		l.mu.Unlock()
	})
	defer stop()

	l.mu.Lock()
	defer l.mu.Unlock()

	for l.seq <= after && !l.closed && ctx.Err() == nil {
		l.cond.Wait()
	}
	if l.seq <= after {
		var zero T
		return zero, l.seq, false
	}
	return l.value, l.seq, true
}

// Close wakes any waiter; later publishes are ignored.
func (l *Latest[T]) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.cond.Broadcast()
}
