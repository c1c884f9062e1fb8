package observe_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/liveset/internal/backend"
	"github.com/roach88/liveset/internal/memory"
	"github.com/roach88/liveset/internal/observe"
	"github.com/roach88/liveset/internal/record"
	"github.com/roach88/liveset/internal/testutil"
)

const waitTimeout = 2 * time.Second

func TestStartDeliversInitialSnapshot(t *testing.T) {
	b := memory.New()
	defer b.Close()
	_, err := b.Write(context.Background(), record.Record{Name: "Sam"})
	require.NoError(t, err)

	rec := testutil.NewSnapshotRecorder()
	obs := observe.New(b, backend.Query{}, rec.OnSnapshot, rec.OnError)
	require.NoError(t, obs.Start())
	defer obs.Cancel()

	require.True(t, rec.WaitFor(1, waitTimeout), "initial snapshot not delivered")
	snap, ok := rec.Latest()
	require.True(t, ok)
	require.Len(t, snap.Records, 1)
	assert.Equal(t, "Sam", snap.Records[0].Name)
	assert.Equal(t, int64(1), snap.Seq)
}

func TestSnapshotsFollowMutations(t *testing.T) {
	b := memory.New()
	defer b.Close()

	rec := testutil.NewSnapshotRecorder()
	obs := observe.New(b, backend.Query{}, rec.OnSnapshot, rec.OnError)
	require.NoError(t, obs.Start())
	defer obs.Cancel()

	require.True(t, rec.WaitFor(1, waitTimeout))

	_, err := b.Write(context.Background(), record.Record{Name: "Sam"})
	require.NoError(t, err)
	require.True(t, rec.WaitFor(2, waitTimeout))

	stored, err := b.Write(context.Background(), record.Record{Name: "Tom"})
	require.NoError(t, err)
	require.True(t, rec.WaitFor(3, waitTimeout))

	_, err = b.DeleteByIDs(context.Background(), []int64{*stored.ID})
	require.NoError(t, err)
	require.True(t, rec.WaitFor(4, waitTimeout))

	// The final snapshot reflects state no older than the delete.
	ok := testutil.Eventually(waitTimeout, func() bool {
		snap, _ := rec.Latest()
		return len(snap.Records) == 1 && snap.Records[0].Name == "Sam"
	})
	assert.True(t, ok, "stream never converged on post-delete state")
}

func TestSeqStrictlyIncreases(t *testing.T) {
	b := memory.New()
	defer b.Close()

	rec := testutil.NewSnapshotRecorder()
	obs := observe.New(b, backend.Query{}, rec.OnSnapshot, rec.OnError)
	require.NoError(t, obs.Start())
	defer obs.Cancel()

	for i := 0; i < 5; i++ {
		_, err := b.Write(context.Background(), record.Record{Name: "Sam"})
		require.NoError(t, err)
	}
	require.True(t, rec.WaitFor(2, waitTimeout))

	snaps := rec.Snapshots()
	for i := 1; i < len(snaps); i++ {
		assert.Greater(t, snaps[i].Seq, snaps[i-1].Seq,
			"snapshot %d delivered out of order", i)
	}
}

func TestCancelStopsDeliveryAndAllowsRestart(t *testing.T) {
	b := memory.New()
	defer b.Close()

	rec := testutil.NewSnapshotRecorder()
	obs := observe.New(b, backend.Query{}, rec.OnSnapshot, rec.OnError)
	require.NoError(t, obs.Start())
	require.True(t, rec.WaitFor(1, waitTimeout))

	obs.Cancel()
	before := len(rec.Snapshots())

	_, err := b.Write(context.Background(), record.Record{Name: "Sam"})
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, before, len(rec.Snapshots()), "delivery after cancel")

	// Restartable: a fresh start delivers current state again, with a
	// higher seq than anything delivered before.
	require.NoError(t, obs.Start())
	defer obs.Cancel()
	require.True(t, rec.WaitFor(before+1, waitTimeout))

	snaps := rec.Snapshots()
	last := snaps[len(snaps)-1]
	assert.Greater(t, last.Seq, snaps[before-1].Seq)
	require.Len(t, last.Records, 1)
	assert.Equal(t, "Sam", last.Records[0].Name)
}

func TestDoubleStartFails(t *testing.T) {
	b := memory.New()
	defer b.Close()

	obs := observe.New(b, backend.Query{}, func(observe.Snapshot) {}, nil)
	require.NoError(t, obs.Start())
	defer obs.Cancel()

	assert.Error(t, obs.Start())
}

func TestCancelIdempotent(t *testing.T) {
	b := memory.New()
	defer b.Close()

	obs := observe.New(b, backend.Query{}, func(observe.Snapshot) {}, nil)
	require.NoError(t, obs.Start())
	obs.Cancel()
	obs.Cancel()
}

// failingBackend wraps the in-memory backend but fails every read after the
// trip switch is thrown, to exercise the error path of live evaluation.
type failingBackend struct {
	*memory.Backend
	tripped atomic.Bool
	hub     *backend.Hub
}

func newFailingBackend() *failingBackend {
	return &failingBackend{Backend: memory.New(), hub: backend.NewHub()}
}

func (f *failingBackend) read(q backend.Query) ([]record.Record, error) {
	if f.tripped.Load() {
		return nil, errors.New("evaluation failed")
	}
	return f.Backend.ReadAll(context.Background(), q)
}

func (f *failingBackend) Subscribe(q backend.Query, fn backend.ResultFunc) (backend.Subscription, error) {
	return f.hub.Subscribe(q, fn, f.read)
}

func (f *failingBackend) Write(ctx context.Context, r record.Record) (record.Record, error) {
	stored, err := f.Backend.Write(ctx, r)
	if err == nil {
		f.hub.Broadcast()
	}
	return stored, err
}

func TestEvaluationFailureSurfacesObservationError(t *testing.T) {
	b := newFailingBackend()
	defer b.Close()

	rec := testutil.NewSnapshotRecorder()
	obs := observe.New(b, backend.Query{}, rec.OnSnapshot, rec.OnError)
	require.NoError(t, obs.Start())
	defer obs.Cancel()

	require.True(t, rec.WaitFor(1, waitTimeout))

	b.tripped.Store(true)
	_, err := b.Write(context.Background(), record.Record{Name: "Sam"})
	require.NoError(t, err)

	require.True(t, rec.WaitForError(waitTimeout), "observation error never surfaced")
	errs := rec.Errors()
	require.Len(t, errs, 1, "exactly one handler invocation per failed evaluation")
	assert.True(t, backend.IsObservationError(errs[0]))

	// The stream survives: once evaluation recovers, snapshots resume.
	b.tripped.Store(false)
	before := len(rec.Snapshots())
	_, err = b.Write(context.Background(), record.Record{Name: "Tom"})
	require.NoError(t, err)
	assert.True(t, rec.WaitFor(before+1, waitTimeout), "stream terminated after error")
}
