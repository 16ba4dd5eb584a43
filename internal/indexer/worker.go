package indexer

import (
	"context"
	"log/slog"
	"sync"
)

// NoteIndexer is the slice of the RAG engine the worker needs.
type NoteIndexer interface {
	IndexNote(ctx context.Context, noteID int64) (int, error)
}

// Worker runs note indexing off the request path. A single consumer
// goroutine drains the queue, which also guarantees that two index runs for
// the same note never overlap (the caller obligation from the concurrency
// model is satisfied here, once, for every enqueuer).
type Worker struct {
	engine NoteIndexer
	jobs   chan int64
	logger *slog.Logger

	mu      sync.Mutex
	queued  map[int64]bool
	stopped bool

	wg sync.WaitGroup
}

// NewWorker creates a worker with the given queue capacity.
func NewWorker(engine NoteIndexer, queueSize int) *Worker {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Worker{
		engine: engine,
		jobs:   make(chan int64, queueSize),
		logger: slog.Default(),
		queued: map[int64]bool{},
	}
}

// Start launches the consumer goroutine. ctx cancellation stops processing
// after the in-flight job completes; index operations are not cancellable
// mid-flight and leave no partial state when abandoned.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case noteID, ok := <-w.jobs:
				if !ok {
					return
				}
				w.mu.Lock()
				delete(w.queued, noteID)
				w.mu.Unlock()

				count, err := w.engine.IndexNote(ctx, noteID)
				if err != nil {
					// Dropped, not retried here: IndexNote is idempotent, so
					// the next enqueue for this note recovers fully.
					w.logger.ErrorContext(ctx, "background indexing failed", "note_id", noteID, "error", err)
					continue
				}
				w.logger.InfoContext(ctx, "note indexed", "note_id", noteID, "chunks", count)
			}
		}
	}()
}

// Enqueue schedules a note for indexing. Duplicate IDs already waiting in
// the queue are coalesced. Returns false when the queue is full or the
// worker is stopped; the caller may retry or surface the failure.
func (w *Worker) Enqueue(noteID int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return false
	}
	if w.queued[noteID] {
		return true
	}

	select {
	case w.jobs <- noteID:
		w.queued[noteID] = true
		return true
	default:
		return false
	}
}

// Stop closes the queue and waits for the consumer to drain it.
func (w *Worker) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	close(w.jobs)
	w.mu.Unlock()

	w.wg.Wait()
}
