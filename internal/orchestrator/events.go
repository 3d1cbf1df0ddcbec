package orchestrator

import (
	"sync"

	"skymap/pkg/auth"
)

// Event is a state-change notification for one slot. Consumers recompute
// capability flags from events instead of polling shared state.
type Event struct {
	Slot  auth.Slot
	State auth.State
}

type subscribers struct {
	mu   sync.Mutex
	next int
	subs map[int]func(Event)
}

func newSubscribers() *subscribers {
	return &subscribers{subs: make(map[int]func(Event))}
}

// add registers fn and returns an unsubscribe function.
func (s *subscribers) add(fn func(Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// notify delivers the event to all subscribers. Delivery is synchronous and
// in registration order is not guaranteed; callbacks must not block.
func (s *subscribers) notify(e Event) {
	s.mu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}
