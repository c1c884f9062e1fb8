package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/liveset/internal/backend"
	"github.com/roach88/liveset/internal/record"
)

// ReadAll returns all items ordered per the query, reflecting durable state
// at call time. Returns an empty slice (not nil) when the table is empty.
func (b *Backend) ReadAll(ctx context.Context, q backend.Query) ([]record.Record, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT id, name, quantity, notes
		FROM item
	`+orderClause(q.Ordering))
	if err != nil {
		return nil, mapError("read all", err)
	}
	defer rows.Close()

	var records []record.Record
	for rows.Next() {
		r, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError("read all", fmt.Errorf("iterate items: %w", err))
	}

	// Return empty slice instead of nil
	if records == nil {
		records = []record.Record{}
	}
	return records, nil
}

// readLatest evaluates a query for the hub's delivery goroutines, always
// against latest committed state.
func (b *Backend) readLatest(q backend.Query) ([]record.Record, error) {
	return b.ReadAll(context.Background(), q)
}

// Subscribe registers a live query against this backend.
func (b *Backend) Subscribe(q backend.Query, fn backend.ResultFunc) (backend.Subscription, error) {
	return b.hub.Subscribe(q, fn, b.readLatest)
}

// orderClause maps an ordering to deterministic SQL. Ties on name always
// fall back to id so repeated evaluations of the same state produce the
// same sequence.
func orderClause(o record.Ordering) string {
	switch o {
	case record.OrderingNameAsc:
		return ` ORDER BY name ASC, id ASC`
	case record.OrderingNameDesc:
		return ` ORDER BY name DESC, id ASC`
	default:
		return ` ORDER BY id ASC`
	}
}

// scanItem reads one item row into a Record.
func scanItem(rows *sql.Rows) (record.Record, error) {
	var (
		id       int64
		name     string
		quantity sql.NullInt64
		notes    sql.NullString
	)
	if err := rows.Scan(&id, &name, &quantity, &notes); err != nil {
		return record.Record{}, mapError("read all", fmt.Errorf("scan item: %w", err))
	}

	r := record.Record{ID: &id, Name: name, Notes: notes.String}
	if quantity.Valid {
		q := quantity.Int64
		r.Quantity = &q
	}
	return r, nil
}
