// Package llm wraps the hosted embedding and generation services behind
// two narrow clients. The wrappers carry no policy: owner filtering,
// retry counts and truncation all live in the orchestrators, so a
// different provider can be swapped in without touching them.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"google.golang.org/genai"
)

// embedTimeout bounds a single embedding call. The orchestrators add
// their own retry policy on top.
const embedTimeout = 15 * time.Second

// Embedder maps text onto a fixed-length dense vector.
type Embedder struct {
	embedder ai.Embedder
	model    string
	dim      int
	logger   *slog.Logger
}

// NewEmbedder creates an embedding client over a Genkit embedder.
// model and dim are the pinned values from config: every vector this
// process writes or queries with comes from the same model, or
// similarity scores are garbage.
func NewEmbedder(embedder ai.Embedder, model string, dim int, logger *slog.Logger) *Embedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Embedder{embedder: embedder, model: model, dim: dim, logger: logger}
}

// Model returns the pinned embedding model identifier.
func (e *Embedder) Model() string { return e.model }

// Dimension returns the pinned output dimensionality.
func (e *Embedder) Dimension() int { return e.dim }

// Embed returns the embedding vector for text.
// Fails with ErrInvalidInput on empty input, ErrRateLimited / ErrTimeout /
// ErrUpstream on upstream failures. A response with the wrong
// dimensionality is reported as ErrUpstream: storing it would poison
// the index.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	// The output dimensionality is pinned server-side too; newer Gemini
	// embedding models default to larger vectors than the schema holds.
	dim := int32(e.dim)
	resp, err := e.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			ai.DocumentFromText(text, nil),
		},
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding with %s: %w", e.model, classify(err))
	}

	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding response", ErrUpstream)
	}

	vec := resp.Embeddings[0].Embedding
	if len(vec) != e.dim {
		return nil, fmt.Errorf("%w: embedding dimension %d, want %d (model %s)",
			ErrUpstream, len(vec), e.dim, e.model)
	}

	e.logger.Debug("embedded text", "model", e.model, "chars", len(text))
	return vec, nil
}
