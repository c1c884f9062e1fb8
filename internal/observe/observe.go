// Package observe turns backend change notifications into a lazy,
// restartable, infinite stream of result snapshots.
//
// An Observation does nothing until Start is called. Each start subscribes
// to the backend, immediately delivers one snapshot of current state, then
// one snapshot per relevant mutation in the order mutations were applied.
// Cancel releases the backend registration; the observation can be started
// again afterwards.
package observe

import (
	"fmt"
	"sync"

	"github.com/roach88/liveset/internal/backend"
	"github.com/roach88/liveset/internal/record"
)

// Snapshot is one delivered result set. Seq increases strictly across the
// lifetime of an Observation (surviving restarts), so a consumer holding
// snapshot N can discard anything with a lower seq outright.
type Snapshot struct {
	Seq     int64
	Records []record.Record
}

// SnapshotFunc receives each delivered snapshot.
type SnapshotFunc func(Snapshot)

// ErrorFunc receives each failed evaluation, exactly once per failure.
// After an error the stream keeps running; the observation does not
// auto-recover or re-deliver the failed snapshot. Consumers are expected to
// substitute an empty result set and wait for the next mutation.
type ErrorFunc func(error)

// Observation wraps one query over one backend. Not safe for concurrent
// Start/Cancel from multiple goroutines without external coordination;
// the collection store serializes access under its own lock.
type Observation struct {
	backend backend.Backend
	query   backend.Query
	onSnap  SnapshotFunc
	onErr   ErrorFunc
	clock   *Clock

	mu  sync.Mutex
	sub backend.Subscription
}

// New creates an unstarted observation. onErr may be nil, in which case
// evaluation failures are silently dropped (the stream still continues).
func New(b backend.Backend, q backend.Query, onSnap SnapshotFunc, onErr ErrorFunc) *Observation {
	return &Observation{
		backend: b,
		query:   q,
		onSnap:  onSnap,
		onErr:   onErr,
		clock:   NewClock(),
	}
}

// Start subscribes to the backend. The first snapshot, reflecting current
// state, is delivered without waiting for a mutation. Returns an error if
// the observation is already running or the backend refuses the
// subscription.
func (o *Observation) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sub != nil {
		return fmt.Errorf("observation already started")
	}

	sub, err := o.backend.Subscribe(o.query, o.deliver)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	o.sub = sub
	return nil
}

// Cancel stops future deliveries and releases the backend's observer
// registration. Idempotent; the observation may be started again.
func (o *Observation) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sub == nil {
		return
	}
	o.sub.Cancel()
	o.sub = nil
}

// Query returns the query this observation evaluates.
func (o *Observation) Query() backend.Query {
	return o.query
}

// deliver runs on the backend subscription's delivery goroutine: one
// goroutine, in mutation order, always against latest state - which is what
// makes snapshot seqs non-decreasing in recency.
func (o *Observation) deliver(records []record.Record, err error) {
	if err != nil {
		if o.onErr != nil {
			o.onErr(err)
		}
		return
	}
	o.onSnap(Snapshot{Seq: o.clock.Next(), Records: records})
}
