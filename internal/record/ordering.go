package record

import "sort"

// Ordering selects one of the fixed sort strategies for a materialized view.
// Exactly one ordering is active at a time; the collection store cycles
// through them in declaration order.
type Ordering int

const (
	// OrderingUnspecified leaves records in backend insertion order.
	OrderingUnspecified Ordering = iota
	// OrderingNameAsc sorts by name ascending, ties broken by id.
	OrderingNameAsc
	// OrderingNameDesc sorts by name descending, ties broken by id.
	OrderingNameDesc

	orderingCount
)

// Next advances to the next ordering in the fixed cycle, wrapping from the
// last back to the first.
func (o Ordering) Next() Ordering {
	return (o + 1) % orderingCount
}

// String returns the ordering's name for flags, logs, and scenario files.
func (o Ordering) String() string {
	switch o {
	case OrderingNameAsc:
		return "ascending"
	case OrderingNameDesc:
		return "descending"
	default:
		return "unspecified"
	}
}

// ParseOrdering maps an ordering name back to its value. Unknown names map
// to OrderingUnspecified with ok=false.
func ParseOrdering(s string) (Ordering, bool) {
	switch s {
	case "unspecified", "":
		return OrderingUnspecified, true
	case "ascending":
		return OrderingNameAsc, true
	case "descending":
		return OrderingNameDesc, true
	default:
		return OrderingUnspecified, false
	}
}

// Sort orders records in place according to the given strategy. Sorting is
// stable, and ties on name fall back to id so that repeated evaluations of
// the same state always produce the same sequence.
//
// OrderingUnspecified sorts by id: for the in-memory backend that is
// insertion order, matching the durable backend's rowid order.
func Sort(records []Record, o Ordering) {
	less := func(a, b Record) bool {
		switch o {
		case OrderingNameAsc:
			if a.Name != b.Name {
				return a.Name < b.Name
			}
		case OrderingNameDesc:
			if a.Name != b.Name {
				return a.Name > b.Name
			}
		}
		return idOf(a) < idOf(b)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return less(records[i], records[j])
	})
}

// idOf treats unpersisted records as sorting after all persisted ones.
func idOf(r Record) int64 {
	if r.ID == nil {
		return int64(^uint64(0) >> 1)
	}
	return *r.ID
}
