// Package memory provides the in-memory backend variant. It exists for
// tests and preview contexts: every construction is a fresh, fully isolated
// store, never shared between contexts, so one test can never observe
// another's writes.
package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/roach88/liveset/internal/backend"
	"github.com/roach88/liveset/internal/record"
)

// errNameRequired mirrors the durable backend's NOT NULL constraint on name.
var errNameRequired = errors.New("name is required")

// Backend is a mutex-guarded map of records keyed by id. Ids are assigned
// monotonically from 1, matching the durable backend's auto-increment
// behavior so tests exercise the same id semantics.
type Backend struct {
	mu     sync.Mutex
	rows   map[int64]record.Record
	nextID int64
	closed bool

	hub *backend.Hub
}

var _ backend.Backend = (*Backend)(nil)

// New creates an empty in-memory backend.
func New() *Backend {
	return &Backend{
		rows: make(map[int64]record.Record),
		hub:  backend.NewHub(),
	}
}

// ReadAll returns all records ordered per the query. The result is a deep
// copy; callers own it outright.
func (b *Backend) ReadAll(ctx context.Context, q backend.Query) ([]record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, backend.NewIOError("read all", err)
	}
	return b.readLatest(q)
}

// readLatest evaluates a query against current state. Shared by ReadAll and
// the hub's delivery goroutines.
func (b *Backend) readLatest(q backend.Query) ([]record.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, backend.NewClosedError("read all")
	}

	records := make([]record.Record, 0, len(b.rows))
	for _, r := range b.rows {
		records = append(records, r.Clone())
	}
	record.Sort(records, q.Ordering)
	return records, nil
}

// Write inserts or updates one record. A record without identity gets the
// next id; a record with identity replaces the stored row in place. Records
// are normalized to NFC on the way in.
func (b *Backend) Write(ctx context.Context, r record.Record) (record.Record, error) {
	if err := ctx.Err(); err != nil {
		return record.Record{}, backend.NewIOError("write", err)
	}
	if strings.TrimSpace(r.Name) == "" {
		return record.Record{}, backend.NewConstraintError("write", errNameRequired)
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return record.Record{}, backend.NewClosedError("write")
	}

	stored := r.Normalized()
	if stored.ID == nil {
		b.nextID++
		id := b.nextID
		stored.ID = &id
	} else if *stored.ID > b.nextID {
		// Keep the counter ahead of explicitly-seeded ids.
		b.nextID = *stored.ID
	}
	b.rows[*stored.ID] = stored.Clone()
	b.mu.Unlock()

	b.hub.Broadcast()
	return stored, nil
}

// DeleteByIDs removes the given ids. Idempotent: absent ids are skipped and
// contribute 0 to the count.
func (b *Backend) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, backend.NewIOError("delete", err)
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return 0, backend.NewClosedError("delete")
	}

	var removed int64
	for _, id := range ids {
		if _, ok := b.rows[id]; ok {
			delete(b.rows, id)
			removed++
		}
	}
	b.mu.Unlock()

	if removed > 0 {
		b.hub.Broadcast()
	}
	return removed, nil
}

// Subscribe registers a live query against this backend's state.
func (b *Backend) Subscribe(q backend.Query, fn backend.ResultFunc) (backend.Subscription, error) {
	return b.hub.Subscribe(q, fn, b.readLatest)
}

// Close releases the backend and cancels any remaining subscriptions.
// Subsequent operations fail with a BACKEND_CLOSED error.
func (b *Backend) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	b.hub.Close()
	return nil
}

// Len returns the current row count. Used by tests.
func (b *Backend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rows)
}
