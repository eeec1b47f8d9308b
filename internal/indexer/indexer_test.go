package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/neuralos/neuralos/internal/llm"
	"github.com/neuralos/neuralos/internal/note"
	"github.com/neuralos/neuralos/internal/testutil"
	"github.com/neuralos/neuralos/internal/vecindex"
)

// flakyEmbedder fails the first failures calls, then succeeds.
type flakyEmbedder struct {
	mu       sync.Mutex
	failures int
	err      error
	calls    int
}

func (e *flakyEmbedder) Embed(context.Context, string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.calls <= e.failures {
		return nil, e.err
	}
	return []float32{1, 0, 0}, nil
}

func (e *flakyEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// fakeIndex records upserts and deletes and can inject failures.
type fakeIndex struct {
	mu        sync.Mutex
	records   map[uuid.UUID]vecindex.Record
	upsertErr error
	failures  int
	upserts   int
	deletes   int
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{records: make(map[uuid.UUID]vecindex.Record)}
}

func (f *fakeIndex) Upsert(_ context.Context, rec vecindex.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.upsertErr != nil && f.upserts <= f.failures {
		return f.upsertErr
	}
	f.records[rec.NoteID] = rec
	return nil
}

func (f *fakeIndex) Query(context.Context, []float32, string, int) ([]vecindex.Hit, error) {
	return nil, nil
}

func (f *fakeIndex) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	delete(f.records, id)
	return nil
}

func (f *fakeIndex) has(id uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.records[id]
	return ok
}

// fakeNotes tracks index states in memory.
type fakeNotes struct {
	mu      sync.Mutex
	states  map[uuid.UUID]string
	pending []note.Note
}

func newFakeNotes() *fakeNotes {
	return &fakeNotes{states: make(map[uuid.UUID]string)}
}

func (f *fakeNotes) SetIndexState(_ context.Context, id uuid.UUID, state string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[id] = state
	return nil
}

func (f *fakeNotes) ListPendingIndex(_ context.Context, limit int) ([]note.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeNotes) state(id uuid.UUID) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[id]
}

// fastIndexer shrinks the retry interval so tests finish quickly.
func fastIndexer(e Embedder, idx vecindex.Index, n NoteStore) *Indexer {
	ix := New(e, idx, n, testutil.NewLogger())
	ix.initial = time.Millisecond
	ix.maxRetries = 2
	return ix
}

func testNote() *note.Note {
	return &note.Note{
		ID:        uuid.New(),
		OwnerID:   "alice",
		Title:     "okrs",
		Body:      "ship retrieval v2",
		UpdatedAt: time.Now(),
	}
}

func TestIndexSuccess(t *testing.T) {
	embedder := &flakyEmbedder{}
	idx := newFakeIndex()
	notes := newFakeNotes()
	ix := fastIndexer(embedder, idx, notes)

	n := testNote()
	if err := ix.Index(context.Background(), n); err != nil {
		t.Fatalf("Index: %v", err)
	}
	if !idx.has(n.ID) {
		t.Error("vector not written")
	}
	if got := notes.state(n.ID); got != note.IndexStateIndexed {
		t.Errorf("index state = %q, want indexed", got)
	}
}

func TestIndexRetriesTransientEmbedErrors(t *testing.T) {
	embedder := &flakyEmbedder{failures: 2, err: fmt.Errorf("embed: %w", llm.ErrRateLimited)}
	idx := newFakeIndex()
	notes := newFakeNotes()
	ix := fastIndexer(embedder, idx, notes)

	n := testNote()
	if err := ix.Index(context.Background(), n); err != nil {
		t.Fatalf("Index after transient failures: %v", err)
	}
	if embedder.callCount() != 3 {
		t.Errorf("embed calls = %d, want 3", embedder.callCount())
	}
	if got := notes.state(n.ID); got != note.IndexStateIndexed {
		t.Errorf("index state = %q, want indexed", got)
	}
}

func TestIndexPermanentEmbedErrorFailsFast(t *testing.T) {
	embedder := &flakyEmbedder{failures: 100, err: fmt.Errorf("embed: %w", llm.ErrInvalidInput)}
	idx := newFakeIndex()
	notes := newFakeNotes()
	ix := fastIndexer(embedder, idx, notes)

	n := testNote()
	err := ix.Index(context.Background(), n)
	if !errors.Is(err, llm.ErrInvalidInput) {
		t.Fatalf("Index = %v, want ErrInvalidInput", err)
	}
	if embedder.callCount() != 1 {
		t.Errorf("embed calls = %d, want 1 (permanent errors must not retry)", embedder.callCount())
	}
	if got := notes.state(n.ID); got != note.IndexStatePending {
		t.Errorf("index state = %q, want pending", got)
	}
}

func TestIndexUpsertRetryDoesNotReEmbed(t *testing.T) {
	embedder := &flakyEmbedder{}
	idx := newFakeIndex()
	idx.upsertErr = errors.New("index write flapped")
	idx.failures = 2
	notes := newFakeNotes()
	ix := fastIndexer(embedder, idx, notes)

	n := testNote()
	if err := ix.Index(context.Background(), n); err != nil {
		t.Fatalf("Index: %v", err)
	}
	if embedder.callCount() != 1 {
		t.Errorf("embed calls = %d, want 1 (vector must be reused across upsert retries)", embedder.callCount())
	}
	if !idx.has(n.ID) {
		t.Error("vector not written after retries")
	}
}

func TestIndexExhaustedRetriesMarksPending(t *testing.T) {
	embedder := &flakyEmbedder{failures: 100, err: fmt.Errorf("embed: %w", llm.ErrUpstream)}
	idx := newFakeIndex()
	notes := newFakeNotes()
	ix := fastIndexer(embedder, idx, notes)

	n := testNote()
	if err := ix.Index(context.Background(), n); err == nil {
		t.Fatal("Index succeeded despite persistent failures")
	}
	if got := notes.state(n.ID); got != note.IndexStatePending {
		t.Errorf("index state = %q, want pending", got)
	}
}

func TestDeindexIdempotent(t *testing.T) {
	idx := newFakeIndex()
	ix := fastIndexer(&flakyEmbedder{}, idx, newFakeNotes())
	ctx := context.Background()

	id := uuid.New()
	if err := ix.Deindex(ctx, id); err != nil {
		t.Fatalf("Deindex of absent note: %v", err)
	}
	if err := ix.Deindex(ctx, id); err != nil {
		t.Fatalf("repeat Deindex: %v", err)
	}
}

func TestSweep(t *testing.T) {
	embedder := &flakyEmbedder{}
	idx := newFakeIndex()
	notes := newFakeNotes()
	notes.pending = []note.Note{*testNote(), *testNote()}
	ix := fastIndexer(embedder, idx, notes)

	indexed, err := ix.Sweep(context.Background(), 10)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if indexed != 2 {
		t.Errorf("Sweep indexed %d, want 2", indexed)
	}
	for _, n := range notes.pending {
		if !idx.has(n.ID) {
			t.Errorf("pending note %s not indexed", n.ID)
		}
	}
}
