// Package testutil provides shared testing utilities: a quiet logger,
// deterministic model doubles, and a pgvector-enabled Postgres
// container for integration tests.
package testutil

import (
	"io"
	"log/slog"
)

// NewLogger returns a logger that stays quiet unless something is
// seriously wrong.
func NewLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}
