// Package vecindex wraps the similarity index behind a narrow
// interface: upsert, owner-scoped query, delete. Implementations carry
// no business policy. Retry counts and truncation decisions live in
// the orchestrators, so the backing index can be swapped without
// touching them.
package vecindex

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record is the vector projection of one note, keyed by the note's own
// ID so a re-embed overwrites instead of accumulating duplicates.
type Record struct {
	NoteID  uuid.UUID
	OwnerID string
	Title   string
	Vector  []float32
	// UpdatedAt is the note's modification time, duplicated into the
	// index for deterministic tie-breaking on equal scores.
	UpdatedAt time.Time
}

// Hit is one similarity match.
type Hit struct {
	NoteID    uuid.UUID
	Title     string
	Score     float32 // cosine similarity, higher is closer
	UpdatedAt time.Time
}

// Index is the similarity index contract.
//
// Query MUST apply the owner filter inside the index, never by
// post-filtering results: the physical collection holds vectors from
// many owners, and a missing filter is a privacy defect, not a ranking
// defect. Results are ordered by descending score, ties broken by most
// recent UpdatedAt, then by NoteID for a stable final order.
//
// Delete of an absent ID is not an error.
type Index interface {
	Upsert(ctx context.Context, rec Record) error
	Query(ctx context.Context, vector []float32, owner string, k int) ([]Hit, error)
	Delete(ctx context.Context, noteID uuid.UUID) error
}
