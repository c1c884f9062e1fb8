// Package backend defines the persistence contract the collection layer is
// built against, plus the change-notification hub shared by its
// implementations.
//
// Two implementations exist: internal/sqlite (durable, file-backed, one
// shared instance per process) and internal/memory (isolated, fresh per
// construction, used by tests and preview contexts). The collection layer
// never depends on which one it is talking to.
package backend

import (
	"context"

	"github.com/roach88/liveset/internal/record"
)

// Query parameterizes a read or subscription. Today that is just the
// ordering; the zero value reads everything in insertion order.
type Query struct {
	Ordering record.Ordering
}

// ResultFunc receives a fresh result snapshot after each relevant mutation.
// Exactly one of records/err is meaningful per call. The callback runs on
// the subscription's delivery goroutine, never on the writer's call path,
// and must not block on backend writes.
type ResultFunc func(records []record.Record, err error)

// Subscription is the cancellable handle returned by Subscribe. Cancel
// unregisters the observer from the backend's change registry; it is
// idempotent and safe to call from any goroutine.
type Subscription interface {
	Cancel()
}

// Backend is the pluggable persistence collaborator.
//
// Write and DeleteByIDs may block on I/O; callers that must stay responsive
// run them off their hot path. All returned records are value copies owned
// by the caller.
type Backend interface {
	// ReadAll returns all records matching the query, reflecting state at
	// call time.
	ReadAll(ctx context.Context, q Query) ([]record.Record, error)

	// Write inserts or updates one record atomically. A record without
	// identity gets one assigned; the persisted record is returned.
	Write(ctx context.Context, r record.Record) (record.Record, error)

	// DeleteByIDs removes the given ids and returns how many rows actually
	// went away. Deleting an absent id is not an error, it contributes 0.
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)

	// Subscribe registers fn to receive a fresh result snapshot for q after
	// every mutation that may affect q's result set. Delivery is
	// at-least-once: spurious re-evaluations are possible, dropped
	// notifications are not.
	Subscribe(q Query, fn ResultFunc) (Subscription, error)

	// Close releases the backend. Subscriptions still registered are
	// cancelled.
	Close() error
}
