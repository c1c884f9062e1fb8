package backend

import (
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/liveset/internal/record"
)

// ReadFunc evaluates a query against the backend's latest state. The hub
// calls it from a subscriber's delivery goroutine, never from the writer's
// call path.
type ReadFunc func(q Query) ([]record.Record, error)

// Hub is the change-notification registry shared by both backend
// implementations. Backends call Broadcast after every committed mutation;
// the hub wakes each subscriber's delivery goroutine, which re-evaluates its
// query against latest state and invokes the callback.
//
// Wake-ups go through a buffered size-1 signal channel per subscriber, so a
// burst of mutations coalesces into one re-evaluation - permitted because
// only the latest snapshot matters and every evaluation reads latest state.
// A mutation that lands mid-evaluation leaves the signal set, guaranteeing
// one more evaluation afterwards: notifications are at-least-once and never
// dropped.
//
// Thread-safety: all methods are safe for concurrent use.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]*hubSubscription
	closed bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]*hubSubscription)}
}

type hubSubscription struct {
	id     string
	hub    *Hub
	query  Query
	fn     ResultFunc
	read   ReadFunc
	signal chan struct{} // Signals pending re-evaluation (buffered, size 1)
	done   chan struct{}

	cancelOnce sync.Once
}

// Subscribe registers a subscriber and primes it so the first delivery
// reflects current state immediately. Returns an error only if the hub is
// closed.
func (h *Hub) Subscribe(q Query, fn ResultFunc, read ReadFunc) (Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, NewClosedError("subscribe")
	}

	s := &hubSubscription{
		id:     uuid.Must(uuid.NewV7()).String(),
		hub:    h,
		query:  q,
		fn:     fn,
		read:   read,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	h.subs[s.id] = s

	// Prime the signal so the goroutine delivers an initial snapshot
	// without waiting for a mutation.
	s.signal <- struct{}{}

	go s.run()
	return s, nil
}

// Broadcast wakes every subscriber after a committed mutation. Non-blocking:
// a subscriber whose signal is already set simply stays woken.
func (h *Hub) Broadcast() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, s := range h.subs {
		select {
		case s.signal <- struct{}{}:
		default:
		}
	}
}

// Close cancels every remaining subscription. Further Subscribe calls fail
// with a BACKEND_CLOSED error; Broadcast becomes a no-op.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := make([]*hubSubscription, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.subs = make(map[string]*hubSubscription)
	h.mu.Unlock()

	for _, s := range subs {
		s.stop()
	}
}

// Len returns the number of live registrations. Used by tests to verify
// cancellation does not leak observers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// run is the subscriber's delivery loop: wait for a wake-up, re-evaluate the
// query against latest state, deliver. One goroutine per subscription keeps
// delivery single-threaded and in mutation order.
func (s *hubSubscription) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.signal:
		}

		// A cancel that raced the signal wins.
		select {
		case <-s.done:
			return
		default:
		}

		records, err := s.read(s.query)

		// Re-checked after the read: a cancel that landed while the
		// evaluation was in flight suppresses its delivery. A cancel racing
		// the callback itself may still see one final delivery; consumers
		// discard it through their own staleness checks.
		select {
		case <-s.done:
			return
		default:
		}

		if err != nil {
			s.fn(nil, &ObservationError{Query: s.query, Err: err})
			continue
		}
		s.fn(records, nil)
	}
}

// Cancel implements Subscription. Unregisters from the hub synchronously and
// stops the delivery goroutine. Idempotent.
func (s *hubSubscription) Cancel() {
	s.hub.mu.Lock()
	delete(s.hub.subs, s.id)
	s.hub.mu.Unlock()
	s.stop()
}

func (s *hubSubscription) stop() {
	s.cancelOnce.Do(func() {
		close(s.done)
	})
}
