package testutil

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/liveset/internal/observe"
)

func TestRecorderCollectsInOrder(t *testing.T) {
	r := NewSnapshotRecorder()

	r.OnSnapshot(observe.Snapshot{Seq: 1})
	r.OnSnapshot(observe.Snapshot{Seq: 2})

	snaps := r.Snapshots()
	require.Len(t, snaps, 2)
	assert.Equal(t, int64(1), snaps[0].Seq)
	assert.Equal(t, int64(2), snaps[1].Seq)

	latest, ok := r.Latest()
	require.True(t, ok)
	assert.Equal(t, int64(2), latest.Seq)
}

func TestRecorderLatestEmpty(t *testing.T) {
	r := NewSnapshotRecorder()
	_, ok := r.Latest()
	assert.False(t, ok)
}

func TestWaitForReturnsWhenCountReached(t *testing.T) {
	r := NewSnapshotRecorder()

	go func() {
		time.Sleep(5 * time.Millisecond)
		r.OnSnapshot(observe.Snapshot{Seq: 1})
	}()

	assert.True(t, r.WaitFor(1, time.Second))
	assert.False(t, r.WaitFor(2, 20*time.Millisecond), "timeout when count not reached")
}

func TestWaitForError(t *testing.T) {
	r := NewSnapshotRecorder()

	go func() {
		time.Sleep(5 * time.Millisecond)
		r.OnError(errors.New("boom"))
	}()

	assert.True(t, r.WaitForError(time.Second))
	require.Len(t, r.Errors(), 1)
}

func TestEventually(t *testing.T) {
	start := time.Now()
	hit := Eventually(time.Second, func() bool {
		return time.Since(start) > 10*time.Millisecond
	})
	assert.True(t, hit)

	assert.False(t, Eventually(20*time.Millisecond, func() bool { return false }))
}
