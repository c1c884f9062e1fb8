package collection

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/liveset/internal/record"
)

// ErrSessionClosed is returned by Save on a session that already committed
// or was discarded. Terminal sessions are never reused; open a new one.
var ErrSessionClosed = errors.New("edit session already committed or discarded")

// SessionState tracks the edit session's position in its state machine.
type SessionState int

const (
	// SessionDraft is the initial state: the draft is editable and unsaved.
	SessionDraft SessionState = iota
	// SessionCommitted is terminal: Save succeeded (or was a blank no-op).
	SessionCommitted
	// SessionDiscarded is terminal: the draft was released without a write.
	SessionDiscarded
)

// String returns the state's name for logs.
func (s SessionState) String() string {
	switch s {
	case SessionCommitted:
		return "committed"
	case SessionDiscarded:
		return "discarded"
	default:
		return "draft"
	}
}

// Session is a transactional editing buffer for a single record.
//
// The draft fields are an independent value copy of the seed record; nothing
// the session does is visible to the store or the backend until Save. A
// successful Save writes the merged record through the owning store, and the
// refreshed view arrives via the store's observation - the session never
// touches the materialized snapshot directly.
type Session struct {
	store *Store
	token string

	mu    sync.Mutex
	base  record.Record
	state SessionState

	// Draft field values. Edit freely while the session is in SessionDraft.
	Name     string
	Quantity *int64
	Notes    string
}

// NewSession returns an edit session seeded with a value copy of the given
// record's fields.
func (s *Store) NewSession(r record.Record) *Session {
	base := r.Clone()
	sess := &Session{
		store: s,
		token: uuid.Must(uuid.NewV7()).String(),
		base:  base,
		Name:  base.Name,
		Notes: base.Notes,
	}
	if base.Quantity != nil {
		q := *base.Quantity
		sess.Quantity = &q
	}
	return sess
}

// NewBlankSession returns an edit session for a new, unpersisted record with
// type-appropriate blank defaults.
func (s *Store) NewBlankSession() *Session {
	return s.NewSession(record.New())
}

// Token identifies this session in logs. Tokens are UUIDv7, so they sort by
// creation time.
func (e *Session) Token() string {
	return e.token
}

// State returns the session's current state.
func (e *Session) State() SessionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// SetQuantity sets the draft quantity.
func (e *Session) SetQuantity(q int64) {
	e.Quantity = &q
}

// ClearQuantity resets the draft quantity to "not specified".
func (e *Session) ClearQuantity() {
	e.Quantity = nil
}

// Save merges the draft fields into the seed record and writes the result
// through the owning store.
//
// A merged record that is empty per the emptiness predicate is a silent
// no-op success: abandoned creation flows must not leave garbage rows. On
// success (including the no-op) the session transitions to
// SessionCommitted and cannot be reused. On a persistence failure the
// session stays in SessionDraft so the caller may fix the draft and retry.
func (e *Session) Save(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != SessionDraft {
		return ErrSessionClosed
	}

	merged := e.base.Clone()
	merged.Name = e.Name
	merged.Notes = e.Notes
	merged.Quantity = nil
	if e.Quantity != nil {
		q := *e.Quantity
		merged.Quantity = &q
	}

	if merged.IsEmpty() {
		e.state = SessionCommitted
		e.store.logger.Debug("edit session committed empty draft, skipping write",
			"session", e.token,
		)
		return nil
	}

	if _, err := e.store.writeRecord(ctx, merged); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	e.state = SessionCommitted
	e.store.logger.Debug("edit session committed",
		"session", e.token,
		"persisted", merged.Persisted(),
	)
	return nil
}

// Discard releases the draft without any backend interaction. Always
// succeeds; discarding an already-terminal session is a no-op.
func (e *Session) Discard() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != SessionDraft {
		return
	}
	e.state = SessionDiscarded
}
