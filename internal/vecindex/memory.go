package vecindex

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
)

// metadata keys stored alongside each vector in chromem.
const (
	metaOwner     = "owner_id"
	metaTitle     = "title"
	metaUpdatedAt = "note_updated_at"
)

// MemoryIndex is an in-process index backed by chromem-go. Used by the
// dev backend and by tests; semantics match PostgresIndex, including
// in-index owner filtering via chromem's metadata where-clause.
type MemoryIndex struct {
	collection *chromem.Collection
	logger     *slog.Logger
}

// NewMemory creates an empty in-memory index.
func NewMemory(logger *slog.Logger) (*MemoryIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db := chromem.NewDB()
	// Vectors always arrive precomputed; the embedding func must never
	// run.
	col, err := db.CreateCollection("note-embeddings", nil,
		func(_ context.Context, text string) ([]float32, error) {
			return nil, fmt.Errorf("memory index received text %q without a vector", text)
		})
	if err != nil {
		return nil, fmt.Errorf("creating chromem collection: %w", err)
	}
	return &MemoryIndex{collection: col, logger: logger}, nil
}

// Upsert writes rec; chromem keys documents by ID, so re-adding a note
// replaces its previous vector.
func (m *MemoryIndex) Upsert(ctx context.Context, rec Record) error {
	err := m.collection.AddDocument(ctx, chromem.Document{
		ID:        rec.NoteID.String(),
		Embedding: rec.Vector,
		Content:   rec.Title,
		Metadata: map[string]string{
			metaOwner:     rec.OwnerID,
			metaTitle:     rec.Title,
			metaUpdatedAt: rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
		},
	})
	if err != nil {
		return fmt.Errorf("upserting embedding for note %s: %w", rec.NoteID, err)
	}
	return nil
}

// Query returns owner's k nearest records. The owner filter is
// chromem's where-clause, applied inside the index. chromem orders by
// similarity only, so equal scores are re-broken here by update time
// then note ID to keep the contract's deterministic order.
func (m *MemoryIndex) Query(ctx context.Context, vector []float32, owner string, k int) ([]Hit, error) {
	// chromem rejects nResults larger than the collection.
	if n := m.collection.Count(); k > n {
		k = n
	}
	if k == 0 {
		return nil, nil
	}

	results, err := m.collection.QueryEmbedding(ctx, vector, k,
		map[string]string{metaOwner: owner}, nil)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			m.logger.Warn("skipping malformed note id in index", "id", r.ID, "error", err)
			continue
		}
		updatedAt, err := time.Parse(time.RFC3339Nano, r.Metadata[metaUpdatedAt])
		if err != nil {
			updatedAt = time.Time{}
		}
		hits = append(hits, Hit{
			NoteID:    id,
			Title:     r.Metadata[metaTitle],
			Score:     r.Similarity,
			UpdatedAt: updatedAt,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if !hits[i].UpdatedAt.Equal(hits[j].UpdatedAt) {
			return hits[i].UpdatedAt.After(hits[j].UpdatedAt)
		}
		return hits[i].NoteID.String() < hits[j].NoteID.String()
	})
	return hits, nil
}

// Delete removes the note's vector if present.
func (m *MemoryIndex) Delete(ctx context.Context, noteID uuid.UUID) error {
	err := m.collection.Delete(ctx, nil, nil, noteID.String())
	if err != nil {
		return fmt.Errorf("deleting embedding for note %s: %w", noteID, err)
	}
	return nil
}
