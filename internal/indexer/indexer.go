// Package indexer keeps the vector index in sync with the note store.
// Saving a note never waits on indexing: callers enqueue work on the
// Worker, and any note whose indexing fails stays in the pending state
// until the background sweep retries it.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/neuralos/neuralos/internal/llm"
	"github.com/neuralos/neuralos/internal/note"
	"github.com/neuralos/neuralos/internal/vecindex"
)

const (
	defaultMaxRetries      = 4
	defaultInitialInterval = 500 * time.Millisecond
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// NoteStore is the slice of the note store the indexer needs.
type NoteStore interface {
	SetIndexState(ctx context.Context, id uuid.UUID, state string) error
	ListPendingIndex(ctx context.Context, limit int) ([]note.Note, error)
}

// Indexer embeds notes and writes them to the vector index.
type Indexer struct {
	embedder   Embedder
	index      vecindex.Index
	notes      NoteStore
	maxRetries uint64
	initial    time.Duration
	logger     *slog.Logger
}

// New creates an indexer with the default retry policy.
func New(embedder Embedder, index vecindex.Index, notes NoteStore, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		embedder:   embedder,
		index:      index,
		notes:      notes,
		maxRetries: defaultMaxRetries,
		initial:    defaultInitialInterval,
		logger:     logger,
	}
}

func (ix *Indexer) newBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = ix.initial
	return backoff.WithContext(backoff.WithMaxRetries(b, ix.maxRetries), ctx)
}

// Index embeds n and upserts its vector. On success the note is marked
// indexed; on exhausted retries it is marked pending so the sweep picks
// it up later, and the error is returned.
//
// Embedding and upserting retry independently: a vector that was
// already computed is never thrown away because the index write
// flapped.
func (ix *Indexer) Index(ctx context.Context, n *note.Note) error {
	text := n.EmbeddingText()

	var vector []float32
	err := backoff.Retry(func() error {
		v, err := ix.embedder.Embed(ctx, text)
		if err != nil {
			if !llm.Retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		vector = v
		return nil
	}, ix.newBackoff(ctx))
	if err != nil {
		ix.markPending(n.ID)
		return fmt.Errorf("embedding note %s: %w", n.ID, err)
	}

	rec := vecindex.Record{
		NoteID:    n.ID,
		OwnerID:   n.OwnerID,
		Title:     n.Title,
		Vector:    vector,
		UpdatedAt: n.UpdatedAt,
	}
	err = backoff.Retry(func() error {
		return ix.index.Upsert(ctx, rec)
	}, ix.newBackoff(ctx))
	if err != nil {
		ix.markPending(n.ID)
		return fmt.Errorf("upserting note %s: %w", n.ID, err)
	}

	if err := ix.notes.SetIndexState(ctx, n.ID, note.IndexStateIndexed); err != nil {
		// The note may have been hard-deleted between embed and here.
		if errors.Is(err, note.ErrNotFound) {
			return ix.Deindex(ctx, n.ID)
		}
		return fmt.Errorf("marking note %s indexed: %w", n.ID, err)
	}
	ix.logger.Debug("indexed note", "note_id", n.ID, "owner", n.OwnerID)
	return nil
}

// Deindex removes the note's vector. Removing an absent vector is a
// no-op, so retries of half-finished deletes are safe.
func (ix *Indexer) Deindex(ctx context.Context, noteID uuid.UUID) error {
	err := backoff.Retry(func() error {
		return ix.index.Delete(ctx, noteID)
	}, ix.newBackoff(ctx))
	if err != nil {
		return fmt.Errorf("deindexing note %s: %w", noteID, err)
	}
	ix.logger.Debug("deindexed note", "note_id", noteID)
	return nil
}

// Sweep reindexes up to limit pending notes and reports how many
// succeeded. Per-note failures are logged and skipped; the notes stay
// pending for the next sweep.
func (ix *Indexer) Sweep(ctx context.Context, limit int) (int, error) {
	pending, err := ix.notes.ListPendingIndex(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("listing pending notes: %w", err)
	}

	indexed := 0
	for i := range pending {
		if ctx.Err() != nil {
			return indexed, ctx.Err()
		}
		if err := ix.Index(ctx, &pending[i]); err != nil {
			ix.logger.Warn("sweep could not index note",
				"note_id", pending[i].ID, "error", err)
			continue
		}
		indexed++
	}
	if indexed > 0 {
		ix.logger.Info("sweep reindexed pending notes", "count", indexed, "pending", len(pending))
	}
	return indexed, nil
}

// markPending records that the note still needs indexing. Runs on a
// fresh context because the caller's may already be dead, and that is
// exactly when the pending marker matters most.
func (ix *Indexer) markPending(id uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ix.notes.SetIndexState(ctx, id, note.IndexStatePending); err != nil &&
		!errors.Is(err, note.ErrNotFound) {
		ix.logger.Error("could not mark note pending", "note_id", id, "error", err)
	}
}
