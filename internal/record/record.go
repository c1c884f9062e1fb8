package record

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Record is one stored item. Records are always passed by value copy across
// component boundaries - the store, observations, and edit sessions each own
// their own copy, so a field mutated in one place can never silently change
// under another.
//
// Identity: ID is nil until the backend assigns a surrogate key on first
// write. Once assigned, identity is never reassigned; field values change
// only through a committed edit session.
type Record struct {
	// ID is the backend-assigned surrogate key. nil means "not yet persisted".
	ID *int64

	// Name is the item's display name. Required for a non-empty record.
	Name string

	// Quantity is an optional count. nil means "not specified", which is
	// distinct from zero.
	Quantity *int64

	// Notes holds free-form text. Backfilled from Name by the addNotes
	// migration for rows that predate the column.
	Notes string
}

// New returns a blank draft record with no identity.
func New() Record {
	return Record{}
}

// Persisted reports whether the record has a backend-assigned identity.
func (r Record) Persisted() bool {
	return r.ID != nil
}

// IsEmpty reports whether the record carries no significant field values:
// blank trimmed name, no quantity, blank trimmed notes. Empty records are
// never written - this is the guard that keeps abandoned creation flows from
// leaving garbage rows behind.
func (r Record) IsEmpty() bool {
	return strings.TrimSpace(r.Name) == "" &&
		r.Quantity == nil &&
		strings.TrimSpace(r.Notes) == ""
}

// Clone returns a deep value copy. The Quantity pointer is duplicated so the
// copy shares no mutable state with the original.
func (r Record) Clone() Record {
	c := r
	if r.ID != nil {
		id := *r.ID
		c.ID = &id
	}
	if r.Quantity != nil {
		q := *r.Quantity
		c.Quantity = &q
	}
	return c
}

// Equal reports whether two records have the same identity and field values.
func (r Record) Equal(other Record) bool {
	if (r.ID == nil) != (other.ID == nil) {
		return false
	}
	if r.ID != nil && *r.ID != *other.ID {
		return false
	}
	if (r.Quantity == nil) != (other.Quantity == nil) {
		return false
	}
	if r.Quantity != nil && *r.Quantity != *other.Quantity {
		return false
	}
	return r.Name == other.Name && r.Notes == other.Notes
}

// Normalized returns a copy with all text fields in Unicode NFC form.
// Backends normalize on write so that composed and decomposed input of the
// same text compares and sorts identically regardless of how it was typed.
func (r Record) Normalized() Record {
	c := r.Clone()
	c.Name = norm.NFC.String(c.Name)
	c.Notes = norm.NFC.String(c.Notes)
	return c
}

// CloneAll returns a deep copy of a record slice. Used wherever a snapshot
// crosses an ownership boundary.
func CloneAll(records []Record) []Record {
	if records == nil {
		return nil
	}
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
