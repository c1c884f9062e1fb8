package testutil

import (
	"time"
)

// Eventually polls cond until it returns true or the timeout expires.
// Returns the final result. Poll interval is fixed at 2ms - snapshot
// delivery is in-process, so conditions settle quickly or not at all.
//
// Used by store-level tests where the interesting state lives inside the
// store rather than in a recorder.
func Eventually(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(2 * time.Millisecond)
	}
}
