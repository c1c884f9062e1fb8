package testutil

import (
	"sync"
	"time"

	"github.com/roach88/liveset/internal/observe"
)

// SnapshotRecorder collects delivered snapshots for assertions.
//
// Observation delivery happens on a background goroutine, so tests cannot
// just call into the store and inspect state synchronously; they record
// snapshots and wait for a count with a deadline instead of sleeping.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type SnapshotRecorder struct {
	mu        sync.Mutex
	snapshots []observe.Snapshot
	errs      []error
	signal    chan struct{} // Signals arrival (buffered, size 1)
}

// NewSnapshotRecorder creates an empty recorder.
func NewSnapshotRecorder() *SnapshotRecorder {
	return &SnapshotRecorder{signal: make(chan struct{}, 1)}
}

// OnSnapshot records a delivered snapshot. Pass as the observation's
// snapshot handler.
func (r *SnapshotRecorder) OnSnapshot(snap observe.Snapshot) {
	r.mu.Lock()
	r.snapshots = append(r.snapshots, snap)
	r.mu.Unlock()
	r.wake()
}

// OnError records a delivered observation error. Pass as the observation's
// error handler.
func (r *SnapshotRecorder) OnError(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
	r.wake()
}

// Snapshots returns a copy of everything recorded so far.
func (r *SnapshotRecorder) Snapshots() []observe.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]observe.Snapshot, len(r.snapshots))
	copy(out, r.snapshots)
	return out
}

// Errors returns a copy of all recorded observation errors.
func (r *SnapshotRecorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]error, len(r.errs))
	copy(out, r.errs)
	return out
}

// Latest returns the most recent snapshot and whether one exists.
func (r *SnapshotRecorder) Latest() (observe.Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		return observe.Snapshot{}, false
	}
	return r.snapshots[len(r.snapshots)-1], true
}

// WaitFor blocks until at least n snapshots have been recorded or the
// timeout expires. Returns true if the count was reached.
func (r *SnapshotRecorder) WaitFor(n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		r.mu.Lock()
		have := len(r.snapshots)
		r.mu.Unlock()
		if have >= n {
			return true
		}

		select {
		case <-deadline:
			return false
		case <-r.signal:
		}
	}
}

// WaitForError blocks until at least one observation error has been
// recorded or the timeout expires.
func (r *SnapshotRecorder) WaitForError(timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		r.mu.Lock()
		have := len(r.errs)
		r.mu.Unlock()
		if have > 0 {
			return true
		}

		select {
		case <-deadline:
			return false
		case <-r.signal:
		}
	}
}

func (r *SnapshotRecorder) wake() {
	select {
	case r.signal <- struct{}{}:
	default:
	}
}
