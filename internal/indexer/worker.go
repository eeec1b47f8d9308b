package indexer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/neuralos/neuralos/internal/note"
)

const (
	defaultQueueSize  = 256
	defaultSweepEvery = time.Minute
	defaultSweepLimit = 100
	jobTimeout        = 2 * time.Minute
)

type jobKind int

const (
	jobIndex jobKind = iota
	jobDeindex
)

type job struct {
	kind   jobKind
	note   *note.Note
	noteID uuid.UUID
}

// Worker drains indexing jobs on a single goroutine and periodically
// sweeps notes left in the pending state. Enqueue never blocks; when
// the queue is full the note simply stays pending and the sweep
// finishes the work.
type Worker struct {
	indexer    *Indexer
	jobs       chan job
	sweepEvery time.Duration
	logger     *slog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewWorker wraps ix in a background worker.
func NewWorker(ix *Indexer, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		indexer:    ix,
		jobs:       make(chan job, defaultQueueSize),
		sweepEvery: defaultSweepEvery,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Start launches the worker goroutine. Safe to call once.
func (w *Worker) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		ctx, w.cancel = context.WithCancel(ctx)
		go w.run(ctx)
	})
}

// Stop cancels the worker and waits for the in-flight job to finish.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		if w.cancel != nil {
			w.cancel()
			<-w.done
		}
	})
}

// EnqueueIndex queues n for indexing. Returns false when the queue is
// full; the note is already marked pending, so nothing is lost.
func (w *Worker) EnqueueIndex(n *note.Note) bool {
	select {
	case w.jobs <- job{kind: jobIndex, note: n}:
		return true
	default:
		w.logger.Warn("index queue full, leaving note for sweep", "note_id", n.ID)
		return false
	}
}

// EnqueueDeindex queues removal of noteID's vector. Returns false when
// the queue is full; the orphaned vector is harmless since retrieval
// hydrates from the note store and drops IDs that no longer resolve.
func (w *Worker) EnqueueDeindex(noteID uuid.UUID) bool {
	select {
	case w.jobs <- job{kind: jobDeindex, noteID: noteID}:
		return true
	default:
		w.logger.Warn("index queue full, dropping deindex", "note_id", noteID)
		return false
	}
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case j := <-w.jobs:
			w.handle(ctx, j)
		case <-ticker.C:
			if _, err := w.indexer.Sweep(ctx, defaultSweepLimit); err != nil && ctx.Err() == nil {
				w.logger.Error("index sweep failed", "error", err)
			}
		}
	}
}

func (w *Worker) handle(ctx context.Context, j job) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	switch j.kind {
	case jobIndex:
		if err := w.indexer.Index(ctx, j.note); err != nil && ctx.Err() == nil {
			w.logger.Error("background indexing failed", "note_id", j.note.ID, "error", err)
		}
	case jobDeindex:
		if err := w.indexer.Deindex(ctx, j.noteID); err != nil && ctx.Err() == nil {
			w.logger.Error("background deindexing failed", "note_id", j.noteID, "error", err)
		}
	}
}
