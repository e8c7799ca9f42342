package engine

import (
	"sync"

	"github.com/roach88/sortie/internal/ir"
)

// jobKind distinguishes writer jobs.
type jobKind int

const (
	// jobSave upserts a snapshot.
	jobSave jobKind = iota + 1
	// jobReset clears the stored record, then saves a snapshot.
	jobReset
	// jobFlush is a barrier; done is closed once every earlier job finished.
	jobFlush
)

func (k jobKind) String() string {
	switch k {
	case jobSave:
		return "save"
	case jobReset:
		return "reset"
	case jobFlush:
		return "flush"
	default:
		return "unknown"
	}
}

// job is one unit of work for the snapshot writer.
type job struct {
	kind   jobKind
	record ir.PersistedProgress
	done   chan struct{}
}

// jobQueue is a thread-safe FIFO of writer jobs.
//
// A save enqueued behind a save or reset that has not been picked up yet
// replaces that job's snapshot instead of queueing a second write. Every
// snapshot is complete, so only the newest one matters.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the writer loop.
type jobQueue struct {
	mu     sync.Mutex
	jobs   []job
	closed bool
	signal chan struct{} // buffered, size 1
}

func newJobQueue() *jobQueue {
	return &jobQueue{
		jobs:   make([]job, 0, 8),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds a job to the back of the queue, coalescing saves.
// Returns false if the queue is closed.
func (q *jobQueue) Enqueue(j job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	if j.kind == jobSave && len(q.jobs) > 0 {
		tail := &q.jobs[len(q.jobs)-1]
		if tail.kind == jobSave || tail.kind == jobReset {
			tail.record = j.record
			return true
		}
	}
	q.jobs = append(q.jobs, j)

	// Non-blocking: the buffer of 1 coalesces signals
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes and returns the front job without blocking.
func (q *jobQueue) TryDequeue() (job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) == 0 {
		return job{}, false
	}

	j := q.jobs[0]
	q.jobs[0] = job{}
	if len(q.jobs) == 1 {
		q.jobs = q.jobs[:0]
	} else {
		q.jobs = q.jobs[1:]
	}
	return j, true
}

// Wait returns a channel that signals when jobs may be available.
// The channel is closed when the queue is closed.
func (q *jobQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *jobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Close stops accepting jobs and wakes the writer. Queued jobs still drain.
func (q *jobQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
