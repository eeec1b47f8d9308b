// Package log provides the logging setup shared by every component.
//
// Loggers are injected, never global: each component receives one via
// its constructor and may add context with logger.With(). Tests use
// NewNop to silence output.
package log

import (
	"io"
	"log/slog"
	"os"
)

// Logger aliases *slog.Logger so components depend on the stdlib type
// directly while keeping constructor signatures short.
type Logger = *slog.Logger

// Config defines logger options.
type Config struct {
	// Level sets the minimum log level. Default: slog.LevelInfo.
	Level slog.Level

	// JSON enables JSON output instead of text.
	JSON bool

	// AddSource attaches source file information to entries.
	AddSource bool
}

// New creates a logger writing to stderr.
func New(cfg Config) Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter creates a logger writing to w. Used by tests to capture
// output in a buffer.
func NewWithWriter(w io.Writer, cfg Config) Logger {
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}
	if cfg.JSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewNop returns a logger that discards everything. Test-only; wiring
// it into production code hides failures.
func NewNop() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
