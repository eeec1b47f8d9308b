// Package app wires the application together: config, database,
// Genkit, the model wrappers, the vector index and the orchestrators.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/neuralos/neuralos/internal/config"
	"github.com/neuralos/neuralos/internal/indexer"
	"github.com/neuralos/neuralos/internal/llm"
	"github.com/neuralos/neuralos/internal/note"
	"github.com/neuralos/neuralos/internal/rag"
	"github.com/neuralos/neuralos/internal/user"
	"github.com/neuralos/neuralos/internal/vecindex"
)

// App is the application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit    *genkit.Genkit
	Embedder  *llm.Embedder
	Generator *llm.Generator

	Pool  *pgxpool.Pool
	Index vecindex.Index
	Notes *note.Store
	Users *user.Store

	Indexer *indexer.Indexer
	Worker  *indexer.Worker
	Engine  *rag.Engine

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

// Close shuts everything down in dependency order: stop accepting
// index jobs, flush spans, then drop the pool.
func (a *App) Close() error {
	a.Logger.Info("shutting down application")

	if a.cancel != nil {
		a.cancel()
	}
	if a.Worker != nil {
		a.Worker.Stop()
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.otelShutdown(ctx); err != nil {
			a.Logger.Warn("shutting down tracer provider", "error", err)
		}
	}
	if a.Pool != nil {
		a.Pool.Close()
		a.Logger.Info("database pool closed")
	}
	return nil
}
