package strobe

import (
	"slices"
	"sync"
	"time"
)

// CancelFunc stops a sequencer. It is idempotent.
type CancelFunc func()

// minPeriod bounds the tick interval for non-positive periods
const minPeriod = time.Millisecond

type sequencer struct {
	mu      sync.Mutex
	stopped bool
	stop    chan struct{}
	once    sync.Once
}

// StartSequencer emits sequence[i] through onPhase, one entry per period.
//
// This function:
//  1. Calls onPhase(0, sequence[0]) synchronously before returning
//  2. Emits the remaining entries in order from a timer goroutine
//  3. Terminates on its own after the last entry
//
// When the returned CancelFunc returns, no onPhase call is in progress and
// none will start. onPhase must not call the CancelFunc itself.
// An empty sequence emits nothing.
func StartSequencer(sequence []bool, onPhase func(index int, phase bool), period time.Duration) CancelFunc {
	if len(sequence) == 0 {
		return func() {}
	}
	if period <= 0 {
		period = minPeriod
	}
	seq := slices.Clone(sequence)

	s := &sequencer{stop: make(chan struct{})}
	onPhase(0, seq[0])
	if len(seq) == 1 {
		s.stopped = true
		return s.cancel
	}

	ticker := time.NewTicker(period)
	go func() {
		defer ticker.Stop()
		for i := 1; i < len(seq); i++ {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
			}
			if !s.emit(i, seq[i], onPhase) {
				return
			}
		}
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
	}()

	return s.cancel
}

func (s *sequencer) emit(i int, phase bool, onPhase func(int, bool)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	onPhase(i, phase)
	return true
}

func (s *sequencer) cancel() {
	s.once.Do(func() {
		s.mu.Lock()
		s.stopped = true
		close(s.stop)
		s.mu.Unlock()
	})
}
