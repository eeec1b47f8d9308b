package config

import (
	"fmt"
	"os"
	"slices"
)

// Validate checks configuration values and fails fast on the first
// problem. Returns sentinel errors checkable with errors.Is.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required", ErrMissingAPIKey)
	}

	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: temperature must be between 0.0 and 2.0, got %.2f", ErrInvalidModelName, c.Temperature)
	}

	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}
	// The note_embeddings schema declares vector(768). A different
	// dimension silently corrupts similarity search, so refuse to start.
	if c.EmbeddingDim != DefaultEmbeddingDim {
		return fmt.Errorf("%w: embedding_dim must be %d to match the vector schema, got %d",
			ErrInvalidEmbeddingDim, DefaultEmbeddingDim, c.EmbeddingDim)
	}

	if c.TopK < 1 || c.TopK > MaxTopK {
		return fmt.Errorf("%w: top_k must be between 1 and %d, got %d", ErrInvalidTopK, MaxTopK, c.TopK)
	}
	if c.ContextBudget < 1000 {
		return fmt.Errorf("%w: context_budget must be at least 1000 runes, got %d", ErrInvalidContextBudget, c.ContextBudget)
	}

	if c.VectorBackend != VectorBackendPostgres && c.VectorBackend != VectorBackendMemory {
		return fmt.Errorf("%w: %q (expected %q or %q)",
			ErrInvalidVectorBackend, c.VectorBackend, VectorBackendPostgres, VectorBackendMemory)
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}
	validSSLModes := []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q (expected one of %v)", ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	return nil
}

// ValidateServe adds the checks that only matter when exposing the
// HTTP API: the bearer-token secret must exist and be long enough for
// HS256 to mean anything.
func (c *Config) ValidateServe() error {
	if c.AuthSecret == "" {
		return fmt.Errorf("%w: set AUTH_SECRET", ErrMissingAuthSecret)
	}
	if len(c.AuthSecret) < 32 {
		return fmt.Errorf("%w: must be at least 32 bytes, got %d", ErrInvalidAuthSecret, len(c.AuthSecret))
	}
	return nil
}
