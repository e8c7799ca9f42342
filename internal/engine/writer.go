package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/sortie/internal/metrics"
	"github.com/roach88/sortie/internal/store"
)

// snapshotWriter is the single goroutine that talks to the ProgressStore.
//
// Jobs run one at a time in FIFO order, so two writes derived from different
// transitions never overlap and the later one always lands last.
type snapshotWriter struct {
	store   store.ProgressStore
	queue   *jobQueue
	logger  *slog.Logger
	metrics *metrics.Metrics
	onError func(error)

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newSnapshotWriter(ps store.ProgressStore, logger *slog.Logger, m *metrics.Metrics, onError func(error)) *snapshotWriter {
	ctx, cancel := context.WithCancel(context.Background())
	return &snapshotWriter{
		store:   ps,
		queue:   newJobQueue(),
		logger:  logger,
		metrics: m,
		onError: onError,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// run drains the queue until it is closed and empty.
func (w *snapshotWriter) run() {
	defer close(w.done)
	for {
		if j, ok := w.queue.TryDequeue(); ok {
			w.process(j)
			continue
		}
		<-w.queue.Wait()
		// The signal channel is closed with the queue; an empty queue here
		// means there is nothing left to drain.
		if w.closedAndEmpty() {
			return
		}
	}
}

func (w *snapshotWriter) closedAndEmpty() bool {
	w.queue.mu.Lock()
	defer w.queue.mu.Unlock()
	return w.queue.closed && len(w.queue.jobs) == 0
}

func (w *snapshotWriter) process(j job) {
	switch j.kind {
	case jobFlush:
		close(j.done)
	case jobSave:
		w.save(j)
	case jobReset:
		w.timed("clear", j.record.Revision, func(ctx context.Context) error {
			return w.store.Clear(ctx)
		})
		w.save(j)
	}
}

func (w *snapshotWriter) save(j job) {
	w.timed("save", j.record.Revision, func(ctx context.Context) error {
		return w.store.Save(ctx, j.record)
	})
}

func (w *snapshotWriter) timed(op string, revision int64, fn func(context.Context) error) {
	start := time.Now()
	err := fn(w.ctx)
	w.metrics.Write(op, time.Since(start), err)
	if err == nil {
		w.logger.Debug("progress written", "op", op, "revision", revision)
		return
	}

	err = fmt.Errorf("%s progress (revision %d): %w", op, revision, err)
	if store.IsPersistenceFailure(err) {
		w.logger.Warn("progress not saved", "op", op, "revision", revision, "error", err)
	} else {
		w.logger.Error("progress write failed", "op", op, "revision", revision, "error", err)
	}
	if w.onError != nil {
		w.onError(err)
	}
}

// enqueue hands a job to the writer. Returns false after close.
func (w *snapshotWriter) enqueue(j job) bool {
	return w.queue.Enqueue(j)
}

// flush blocks until every job enqueued before the call has finished.
func (w *snapshotWriter) flush(ctx context.Context) error {
	barrier := make(chan struct{})
	if !w.queue.Enqueue(job{kind: jobFlush, done: barrier}) {
		return ErrClosed
	}
	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops accepting jobs and waits for the queue to drain. If ctx ends
// first, the in-flight write is canceled.
func (w *snapshotWriter) close(ctx context.Context) error {
	w.queue.Close()
	select {
	case <-w.done:
		w.cancel()
		return nil
	case <-ctx.Done():
		w.cancel()
		<-w.done
		return ctx.Err()
	}
}
