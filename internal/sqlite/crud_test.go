package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/roach88/liveset/internal/backend"
	"github.com/roach88/liveset/internal/record"
)

func openTestBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func mustWrite(t *testing.T, b *Backend, r record.Record) record.Record {
	t.Helper()
	stored, err := b.Write(context.Background(), r)
	if err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	return stored
}

func qty(v int64) *int64 { return &v }

func TestWriteInsertAssignsID(t *testing.T) {
	b := openTestBackend(t)

	stored := mustWrite(t, b, record.Record{Name: "Sam", Quantity: qty(3)})
	if stored.ID == nil {
		t.Fatal("expected id to be assigned on insert")
	}

	all, err := b.ReadAll(context.Background(), backend.Query{})
	if err != nil {
		t.Fatalf("ReadAll() failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("got %d records, want 1", len(all))
	}
	if all[0].Name != "Sam" || all[0].Quantity == nil || *all[0].Quantity != 3 {
		t.Errorf("round-trip mismatch: %+v", all[0])
	}
}

func TestWriteUpdateKeepsIdentity(t *testing.T) {
	b := openTestBackend(t)

	stored := mustWrite(t, b, record.Record{Name: "Sam"})
	stored.Name = "Samuel"
	stored.Quantity = qty(5)
	updated := mustWrite(t, b, stored)

	if *updated.ID != *stored.ID {
		t.Errorf("identity changed on update: %d != %d", *updated.ID, *stored.ID)
	}

	all, _ := b.ReadAll(context.Background(), backend.Query{})
	if len(all) != 1 {
		t.Fatalf("update created a new row: %d rows", len(all))
	}
	if all[0].Name != "Samuel" || *all[0].Quantity != 5 {
		t.Errorf("update not applied: %+v", all[0])
	}
}

func TestWriteNilQuantityRoundTrips(t *testing.T) {
	b := openTestBackend(t)

	mustWrite(t, b, record.Record{Name: "Sam"})

	all, _ := b.ReadAll(context.Background(), backend.Query{})
	if all[0].Quantity != nil {
		t.Errorf("quantity = %v, want nil (unspecified, not zero)", *all[0].Quantity)
	}
}

func TestWriteBlankNameRejected(t *testing.T) {
	b := openTestBackend(t)

	_, err := b.Write(context.Background(), record.Record{Name: " \t "})
	if !backend.IsConstraintViolation(err) {
		t.Errorf("expected constraint violation, got %v", err)
	}
}

func TestReadAllOrderings(t *testing.T) {
	b := openTestBackend(t)

	mustWrite(t, b, record.Record{Name: "Sam"})
	mustWrite(t, b, record.Record{Name: "Tom"})
	mustWrite(t, b, record.Record{Name: "Jim"})

	tests := []struct {
		ordering record.Ordering
		want     []string
	}{
		{record.OrderingUnspecified, []string{"Sam", "Tom", "Jim"}},
		{record.OrderingNameAsc, []string{"Jim", "Sam", "Tom"}},
		{record.OrderingNameDesc, []string{"Tom", "Sam", "Jim"}},
	}
	for _, tt := range tests {
		t.Run(tt.ordering.String(), func(t *testing.T) {
			all, err := b.ReadAll(context.Background(), backend.Query{Ordering: tt.ordering})
			if err != nil {
				t.Fatalf("ReadAll() failed: %v", err)
			}
			var got []string
			for _, r := range all {
				got = append(got, r.Name)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("position %d: got %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestReadAllEmptyReturnsEmptySlice(t *testing.T) {
	b := openTestBackend(t)

	all, err := b.ReadAll(context.Background(), backend.Query{})
	if err != nil {
		t.Fatalf("ReadAll() failed: %v", err)
	}
	if all == nil {
		t.Error("expected empty slice, got nil")
	}
	if len(all) != 0 {
		t.Errorf("got %d records, want 0", len(all))
	}
}

func TestDeleteByIDsIdempotent(t *testing.T) {
	b := openTestBackend(t)

	first := mustWrite(t, b, record.Record{Name: "Sam"})
	mustWrite(t, b, record.Record{Name: "Tom"})

	removed, err := b.DeleteByIDs(context.Background(), []int64{*first.ID, 999})
	if err != nil {
		t.Fatalf("DeleteByIDs() failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	removed, err = b.DeleteByIDs(context.Background(), []int64{*first.ID, 999})
	if err != nil {
		t.Fatalf("second DeleteByIDs() failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0 (idempotent)", removed)
	}

	// Empty id set is a no-op.
	removed, err = b.DeleteByIDs(context.Background(), nil)
	if err != nil || removed != 0 {
		t.Errorf("empty delete: removed=%d err=%v", removed, err)
	}
}

func TestSubscribeSeesCommittedWrites(t *testing.T) {
	b := openTestBackend(t)

	var (
		mu      sync.Mutex
		results [][]record.Record
	)
	signal := make(chan struct{}, 1)
	sub, err := b.Subscribe(backend.Query{Ordering: record.OrderingNameAsc},
		func(records []record.Record, err error) {
			if err != nil {
				t.Errorf("unexpected observation error: %v", err)
				return
			}
			mu.Lock()
			results = append(results, records)
			mu.Unlock()
			select {
			case signal <- struct{}{}:
			default:
			}
		})
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	defer sub.Cancel()

	waitFor := func(n int) {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			mu.Lock()
			have := len(results)
			mu.Unlock()
			if have >= n {
				return
			}
			select {
			case <-deadline:
				t.Fatalf("timed out waiting for %d deliveries", n)
			case <-signal:
			}
		}
	}

	waitFor(1)
	mustWrite(t, b, record.Record{Name: "Tom"})
	mustWrite(t, b, record.Record{Name: "Jim"})
	waitFor(2)

	// Eventually the snapshot must match ReadAll state: Jim before Tom.
	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		last := results[len(results)-1]
		mu.Unlock()
		if len(last) == 2 && last[0].Name == "Jim" && last[1].Name == "Tom" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("snapshot never converged: %+v", last)
		}
		time.Sleep(2 * time.Millisecond)
	}
}
