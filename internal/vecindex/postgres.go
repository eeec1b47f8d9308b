package vecindex

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

// PostgresIndex stores vectors in the note_embeddings table with a
// pgvector HNSW index. The pool must have pgvector types registered
// (see app setup).
type PostgresIndex struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres creates a pgvector-backed index.
func NewPostgres(pool *pgxpool.Pool, logger *slog.Logger) *PostgresIndex {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresIndex{pool: pool, logger: logger}
}

// Upsert writes rec, overwriting any previous vector for the same note.
func (p *PostgresIndex) Upsert(ctx context.Context, rec Record) error {
	vec := pgvector.NewVector(rec.Vector)
	_, err := p.pool.Exec(ctx, `
		INSERT INTO note_embeddings (note_id, owner_id, title, embedding, note_updated_at, indexed_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (note_id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			title = EXCLUDED.title,
			embedding = EXCLUDED.embedding,
			note_updated_at = EXCLUDED.note_updated_at,
			indexed_at = now()`,
		rec.NoteID, rec.OwnerID, rec.Title, vec, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting embedding for note %s: %w", rec.NoteID, err)
	}
	p.logger.Debug("upserted embedding", "note_id", rec.NoteID, "owner", rec.OwnerID)
	return nil
}

// Query returns the k nearest vectors among owner's records. The owner
// predicate is part of the SQL WHERE clause, so isolation holds at the
// index regardless of what callers do with the results. Ordering:
// cosine distance ascending, then note_updated_at descending, then
// note_id, which makes repeated queries over a fixed dataset
// deterministic.
func (p *PostgresIndex) Query(ctx context.Context, vector []float32, owner string, k int) ([]Hit, error) {
	vec := pgvector.NewVector(vector)
	rows, err := p.pool.Query(ctx, `
		SELECT note_id, title, 1 - (embedding <=> $1) AS similarity, note_updated_at
		FROM note_embeddings
		WHERE owner_id = $2
		ORDER BY embedding <=> $1, note_updated_at DESC, note_id
		LIMIT $3`,
		vec, owner, k)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	hits := make([]Hit, 0, k)
	for rows.Next() {
		var h Hit
		var score float64
		if err := rows.Scan(&h.NoteID, &h.Title, &score, &h.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning hit: %w", err)
		}
		h.Score = float32(score)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	return hits, nil
}

// Delete removes the note's vector. Absent IDs are fine: deindex is
// idempotent so abandoned requests can safely retry.
func (p *PostgresIndex) Delete(ctx context.Context, noteID uuid.UUID) error {
	if _, err := p.pool.Exec(ctx,
		`DELETE FROM note_embeddings WHERE note_id = $1`, noteID); err != nil {
		return fmt.Errorf("deleting embedding for note %s: %w", noteID, err)
	}
	return nil
}
