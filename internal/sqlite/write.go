package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/liveset/internal/backend"
	"github.com/roach88/liveset/internal/record"
)

// Write inserts or updates one item atomically.
//
// A record without identity is inserted and returned with its assigned id.
// A record with identity is upserted via ON CONFLICT(id) DO UPDATE, so a
// write against a row deleted out from under the session still lands rather
// than vanishing silently.
//
// Text fields are normalized to NFC before hitting the database.
func (b *Backend) Write(ctx context.Context, r record.Record) (record.Record, error) {
	stored := r.Normalized()

	// NOT NULL alone would let a blank name through; enforce the same
	// constraint the in-memory backend applies.
	if strings.TrimSpace(stored.Name) == "" {
		return record.Record{}, backend.NewConstraintError("write", errNameRequired)
	}

	var quantity sql.NullInt64
	if stored.Quantity != nil {
		quantity = sql.NullInt64{Int64: *stored.Quantity, Valid: true}
	}

	if stored.ID == nil {
		result, err := b.db.ExecContext(ctx, `
			INSERT INTO item (name, quantity, notes)
			VALUES (?, ?, ?)
		`, stored.Name, quantity, stored.Notes)
		if err != nil {
			return record.Record{}, mapError("write", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return record.Record{}, mapError("write", fmt.Errorf("last insert id: %w", err))
		}
		stored.ID = &id
	} else {
		_, err := b.db.ExecContext(ctx, `
			INSERT INTO item (id, name, quantity, notes)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				quantity = excluded.quantity,
				notes = excluded.notes
		`, *stored.ID, stored.Name, quantity, stored.Notes)
		if err != nil {
			return record.Record{}, mapError("write", err)
		}
	}

	b.hub.Broadcast()
	return stored, nil
}

// DeleteByIDs removes the given ids and returns how many rows actually went
// away. Idempotent: absent ids simply contribute 0 to the count.
func (b *Backend) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?, ", len(ids)-1) + "?"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	result, err := b.db.ExecContext(ctx,
		`DELETE FROM item WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, mapError("delete", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, mapError("delete", fmt.Errorf("rows affected: %w", err))
	}

	if removed > 0 {
		b.hub.Broadcast()
	}
	return removed, nil
}
