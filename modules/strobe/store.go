package strobe

import "sync"

// Publisher receives every State produced by the Store.
// Publish must not block; statebus.Bus satisfies it.
type Publisher interface {
	Publish(State)
}

// PublisherFunc adapts a function to Publisher
type PublisherFunc func(State)

func (f PublisherFunc) Publish(s State) { f(s) }

// Store holds the current State and is its only writer.
type Store struct {
	mu    sync.Mutex
	state State
	pub   Publisher
}

// NewStore creates a store holding initial. pub may be nil.
func NewStore(initial State, pub Publisher) *Store {
	return &Store{state: initial, pub: pub}
}

// Dispatch reduces ev into the current state, publishes the result and
// returns it. Publication happens under the store lock so subscribers see
// snapshots in dispatch order.
func (s *Store) Dispatch(ev Event) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = Reduce(s.state, ev)
	if s.pub != nil {
		s.pub.Publish(s.state)
	}
	return s.state
}

// State returns the current snapshot
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
