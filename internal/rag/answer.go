// Package rag answers questions over a user's own notes: embed the
// query, search the vector index under the caller's owner filter,
// hydrate matches from the note store, and generate an answer grounded
// in the hydrated text.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/neuralos/neuralos/internal/note"
	"github.com/neuralos/neuralos/internal/vecindex"
)

const (
	// DefaultTopK is used when the caller passes k <= 0.
	DefaultTopK = 5
	// MaxTopK caps the caller-supplied k.
	MaxTopK = 20

	hydrateConcurrency = 4
)

// NoResultsAnswer is returned verbatim when the search finds nothing.
// The generator is not called in that case.
const NoResultsAnswer = "I couldn't find anything in your notes related to that. " +
	"Try rephrasing the question, or add a note about it first."

// ErrEmptyQuery rejects blank questions before any model call.
var ErrEmptyQuery = errors.New("query must not be empty")

// StageError wraps a failure with the pipeline stage it happened in,
// so API handlers can tell a search outage from a generation outage.
type StageError struct {
	Stage string // "embed", "search", "hydrate" or "generate"
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }
func (e *StageError) Unwrap() error { return e.Err }

// Embedder turns the query into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator produces the final answer text.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// NoteGetter is the slice of the note store retrieval needs.
type NoteGetter interface {
	Get(ctx context.Context, owner string, id uuid.UUID) (*note.Note, error)
}

// Source identifies one note the answer drew on.
type Source struct {
	NoteID uuid.UUID `json:"note_id"`
	Title  string    `json:"title"`
	Score  float32   `json:"score"`
}

// Result is an answered query.
type Result struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Engine runs the retrieval pipeline. Safe for concurrent use.
type Engine struct {
	embedder  Embedder
	index     vecindex.Index
	notes     NoteGetter
	generator Generator
	topK      int
	budget    int
	logger    *slog.Logger
}

// New creates an engine. topK is the default result count when the
// caller does not ask for one; budget is the context budget in
// characters handed to the prompt composer.
func New(embedder Embedder, index vecindex.Index, notes NoteGetter, generator Generator, topK, budget int, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if topK <= 0 || topK > MaxTopK {
		topK = DefaultTopK
	}
	if budget <= 0 {
		budget = 12000
	}
	return &Engine{
		embedder:  embedder,
		index:     index,
		notes:     notes,
		generator: generator,
		topK:      topK,
		budget:    budget,
		logger:    logger,
	}
}

// Answer runs the full pipeline for owner's query. k <= 0 selects the
// configured default; anything above MaxTopK is clamped, never an
// error.
func (e *Engine) Answer(ctx context.Context, owner, query string, k int) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if k <= 0 {
		k = e.topK
	}
	if k > MaxTopK {
		k = MaxTopK
	}

	vector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &StageError{Stage: "embed", Err: err}
	}

	hits, err := e.index.Query(ctx, vector, owner, k)
	if err != nil {
		return nil, &StageError{Stage: "search", Err: err}
	}
	if len(hits) == 0 {
		return &Result{Answer: NoResultsAnswer, Sources: []Source{}}, nil
	}

	scored, err := e.hydrate(ctx, owner, hits)
	if err != nil {
		return nil, &StageError{Stage: "hydrate", Err: err}
	}
	if len(scored) == 0 {
		// Every hit pointed at a note that no longer exists.
		return &Result{Answer: NoResultsAnswer, Sources: []Source{}}, nil
	}

	system, prompt, used := composePrompt(query, scored, e.budget)
	answer, err := e.generator.Generate(ctx, system, prompt)
	if err != nil {
		return nil, &StageError{Stage: "generate", Err: err}
	}

	// Sources list every hydrated hit, including notes the prompt
	// composer had to drop for budget.
	sources := make([]Source, len(scored))
	for i, sn := range scored {
		sources[i] = Source{NoteID: sn.note.ID, Title: sn.note.Title, Score: sn.score}
	}
	e.logger.Info("answered query",
		"owner", owner, "hits", len(hits), "used", used)
	return &Result{Answer: answer, Sources: sources}, nil
}

type scoredNote struct {
	note  *note.Note
	score float32
}

// hydrate loads each hit from the note store, preserving hit order.
// Hits whose note has vanished or moved to trash are dropped silently:
// the store is authoritative and the index may lag behind deletes.
func (e *Engine) hydrate(ctx context.Context, owner string, hits []vecindex.Hit) ([]scoredNote, error) {
	loaded := make([]*note.Note, len(hits))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(hydrateConcurrency)
	for i, h := range hits {
		g.Go(func() error {
			n, err := e.notes.Get(ctx, owner, h.NoteID)
			if errors.Is(err, note.ErrNotFound) {
				e.logger.Debug("dropping stale hit", "note_id", h.NoteID)
				return nil
			}
			if err != nil {
				return fmt.Errorf("loading note %s: %w", h.NoteID, err)
			}
			if n.IsDeleted {
				e.logger.Debug("dropping trashed hit", "note_id", h.NoteID)
				return nil
			}
			loaded[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	scored := make([]scoredNote, 0, len(hits))
	for i, n := range loaded {
		if n != nil {
			scored = append(scored, scoredNote{note: n, score: hits[i].Score})
		}
	}
	return scored, nil
}
