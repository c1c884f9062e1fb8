// Package collection materializes the latest result of a live query and
// coordinates edits against it.
//
// A Store owns exactly one active observation at a time plus the snapshot it
// most recently delivered. Consumers read value copies of that snapshot,
// cycle the ordering, delete by position, and open edit sessions; every
// mutation flows through the backend and comes back around via the
// observation, so the materialized view is never patched in place.
package collection

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/liveset/internal/backend"
	"github.com/roach88/liveset/internal/observe"
	"github.com/roach88/liveset/internal/record"
)

// Store holds the current materialized snapshot of records for one query.
//
// The store is the sole holder of the backend reference on the consumer
// side: edit sessions write through it rather than holding the backend
// directly, which keeps persistence access centralized when multiple stores
// or preview instances coexist.
//
// Thread-safety: all methods are safe for concurrent use.
type Store struct {
	backend  backend.Backend
	logger   *slog.Logger
	onChange func()

	mu       sync.Mutex
	ordering record.Ordering
	records  []record.Record
	obs      *observe.Observation
	gen      int64 // Bumped on every ordering switch; stale snapshots carry an older gen
	lastSeq  int64
	closed   bool

	ready       chan struct{} // Recreated per observation; closed when its first snapshot (or fallback) applies
	readyClosed bool
}

// New creates a store over the given backend and starts observing with
// OrderingUnspecified. A nil logger falls back to slog.Default().
//
// The store does not own the backend's lifecycle: Close cancels the
// observation but leaves the backend open (the durable backend is shared
// process-wide).
func New(b backend.Backend, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		backend: b,
		logger:  logger,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.observeLocked(record.OrderingUnspecified); err != nil {
		return nil, err
	}
	return s, nil
}

// SetOnChange registers a callback invoked after every applied snapshot,
// outside the store's lock. Used by live views (the watch command, tests).
// Must be called before concurrent use begins.
func (s *Store) SetOnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Current returns a read-only value copy of the materialized snapshot,
// ordered per the active ordering. Never partially updated: the slice is
// replaced wholesale when a snapshot arrives.
func (s *Store) Current() []record.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return record.CloneAll(s.records)
}

// Ordering returns the active ordering.
func (s *Store) Ordering() record.Ordering {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ordering
}

// SetOrdering cancels the active observation synchronously and starts a new
// one for the given ordering. Last-writer-wins: if SetOrdering is called
// again before the first snapshot of a prior switch arrives, only the
// latest ordering's snapshots are ever applied. The previous materialized
// list stays visible until the winning ordering's first snapshot lands.
func (s *Store) SetOrdering(o record.Ordering) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store closed")
	}
	return s.observeLocked(o)
}

// NextOrdering advances to the next ordering in the fixed cycle, wrapping
// from the last back to the first.
func (s *Store) NextOrdering() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store closed")
	}
	return s.observeLocked(s.ordering.Next())
}

// DeleteAt removes the records at the given positions in the current
// materialized snapshot. Positions out of range and rows without identity
// (unsaved drafts) are skipped, consistent with the backend's delete
// idempotence. Returns how many rows the backend actually removed;
// persistence failures propagate.
func (s *Store) DeleteAt(ctx context.Context, indices []int) (int64, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, fmt.Errorf("store closed")
	}
	var ids []int64
	for _, i := range indices {
		if i < 0 || i >= len(s.records) {
			continue
		}
		if s.records[i].ID == nil {
			continue
		}
		ids = append(ids, *s.records[i].ID)
	}
	s.mu.Unlock()

	if len(ids) == 0 {
		return 0, nil
	}
	removed, err := s.backend.DeleteByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete at: %w", err)
	}
	return removed, nil
}

// Close cancels the active observation. The store keeps serving its last
// materialized snapshot but applies no further updates.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	if s.obs != nil {
		s.obs.Cancel()
		s.obs = nil
	}
}

// observeLocked replaces the active observation. Caller holds s.mu.
//
// Cancel-then-subscribe, in that order, guarantees at most one live
// registration per store in the backend's change registry at any moment.
func (s *Store) observeLocked(o record.Ordering) error {
	if s.obs != nil {
		s.obs.Cancel()
		s.obs = nil
	}

	s.gen++
	s.lastSeq = 0
	s.ready = make(chan struct{})
	s.readyClosed = false
	gen := s.gen

	obs := observe.New(s.backend, backend.Query{Ordering: o},
		func(snap observe.Snapshot) { s.applySnapshot(gen, snap) },
		func(err error) { s.observationFailed(gen, o, err) },
	)
	if err := obs.Start(); err != nil {
		return fmt.Errorf("start observation: %w", err)
	}
	s.obs = obs
	s.ordering = o
	return nil
}

// applySnapshot installs a delivered snapshot unless it is stale - from an
// abandoned ordering switch (older gen) or older than what is already
// applied (lower seq).
func (s *Store) applySnapshot(gen int64, snap observe.Snapshot) {
	s.mu.Lock()
	if s.closed || gen != s.gen || snap.Seq <= s.lastSeq {
		s.mu.Unlock()
		return
	}
	s.records = snap.Records
	s.lastSeq = snap.Seq
	s.signalReadyLocked()
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// signalReadyLocked marks the active observation's first delivery. Caller
// holds s.mu.
func (s *Store) signalReadyLocked() {
	if !s.readyClosed {
		s.readyClosed = true
		close(s.ready)
	}
}

// WaitReady blocks until the active observation has materialized its first
// snapshot (or applied the empty-result fallback after a failed evaluation).
// The gate rearms on every ordering switch: after SetOrdering, WaitReady
// does not return until the new ordering's first snapshot has applied, so
// positions read from Current afterwards map against the new ordering.
func (s *Store) WaitReady(ctx context.Context) error {
	s.mu.Lock()
	ready := s.ready
	s.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// observationFailed implements the deliberate swallow-to-empty policy for
// live-query failures: log, show no rows, keep the stream alive. The next
// successful evaluation repopulates the view. Persistence errors from
// writes and deletes never take this path; they propagate to their callers.
func (s *Store) observationFailed(gen int64, ordering record.Ordering, err error) {
	s.logger.Error("observation failed, falling back to empty result",
		"ordering", ordering.String(),
		"error", err,
	)

	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.records = []record.Record{}
	s.signalReadyLocked()
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// writeRecord is the single write path for edit sessions; the store is the
// only component that talks to the backend on their behalf.
func (s *Store) writeRecord(ctx context.Context, r record.Record) (record.Record, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return record.Record{}, fmt.Errorf("store closed")
	}
	s.mu.Unlock()

	return s.backend.Write(ctx, r)
}
