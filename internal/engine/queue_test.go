package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sortie/internal/ir"
)

func rec(rev int64) ir.PersistedProgress {
	return ir.PersistedProgress{Revision: rev, RunState: ir.NewRunState("1")}
}

func TestJobQueue_FIFO(t *testing.T) {
	q := newJobQueue()

	q.Enqueue(job{kind: jobReset, record: rec(1)})
	q.Enqueue(job{kind: jobFlush, done: make(chan struct{})})
	q.Enqueue(job{kind: jobSave, record: rec(2)})

	j, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, jobReset, j.kind)

	j, ok = q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, jobFlush, j.kind)

	j, ok = q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, jobSave, j.kind)
	assert.Equal(t, int64(2), j.record.Revision)
}

func TestJobQueue_CoalescesSaves(t *testing.T) {
	q := newJobQueue()

	q.Enqueue(job{kind: jobSave, record: rec(1)})
	q.Enqueue(job{kind: jobSave, record: rec(2)})
	q.Enqueue(job{kind: jobSave, record: rec(3)})
	assert.Equal(t, 1, q.Len())

	j, _ := q.TryDequeue()
	assert.Equal(t, int64(3), j.record.Revision, "newest snapshot wins")
}

func TestJobQueue_SaveFoldsIntoPendingReset(t *testing.T) {
	q := newJobQueue()

	q.Enqueue(job{kind: jobReset, record: rec(1)})
	q.Enqueue(job{kind: jobSave, record: rec(2)})
	require.Equal(t, 1, q.Len())

	j, _ := q.TryDequeue()
	assert.Equal(t, jobReset, j.kind, "reset must still clear first")
	assert.Equal(t, int64(2), j.record.Revision)
}

func TestJobQueue_FlushIsABarrier(t *testing.T) {
	q := newJobQueue()

	q.Enqueue(job{kind: jobSave, record: rec(1)})
	q.Enqueue(job{kind: jobFlush, done: make(chan struct{})})
	q.Enqueue(job{kind: jobSave, record: rec(2)})
	assert.Equal(t, 3, q.Len(), "saves on either side of a flush are not merged")
}

func TestJobQueue_TryDequeue_Empty(t *testing.T) {
	q := newJobQueue()
	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestJobQueue_Enqueue_AfterClose(t *testing.T) {
	q := newJobQueue()
	q.Close()
	assert.False(t, q.Enqueue(job{kind: jobSave}))
	q.Close() // idempotent
}

func TestJobQueue_Close_WakesWaiter(t *testing.T) {
	q := newJobQueue()
	woke := make(chan struct{})
	go func() {
		<-q.Wait()
		close(woke)
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case <-woke:
	case <-time.After(time.Second):
		t.Fatal("waiter not woken by close")
	}
}

func TestJobKind_String(t *testing.T) {
	assert.Equal(t, "save", jobSave.String())
	assert.Equal(t, "reset", jobReset.String())
	assert.Equal(t, "flush", jobFlush.String())
	assert.Equal(t, "unknown", jobKind(0).String())
}
