package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/neuralos/neuralos/db"
	"github.com/neuralos/neuralos/internal/config"
	"github.com/neuralos/neuralos/internal/indexer"
	"github.com/neuralos/neuralos/internal/llm"
	"github.com/neuralos/neuralos/internal/note"
	"github.com/neuralos/neuralos/internal/observability"
	"github.com/neuralos/neuralos/internal/rag"
	"github.com/neuralos/neuralos/internal/user"
	"github.com/neuralos/neuralos/internal/vecindex"
)

// Setup creates and initializes the application. Returns an App with
// embedded cleanup; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	// Tracing must be registered before Genkit initialization so the
	// TracerProvider is ready when the first flow runs.
	otelShutdown, err := observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}
	a.otelShutdown = otelShutdown

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit with gemini provider")
	}
	a.Genkit = g
	logger.Info("initialized Genkit with gemini provider", "model", cfg.ModelName)

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}
	a.Embedder = llm.NewEmbedder(embedder, cfg.EmbedderModel, cfg.EmbeddingDim, logger)
	a.Generator = llm.NewGenerator(g, cfg.FullModelName(), cfg.Temperature, logger)

	index, err := provideIndex(cfg, pool, logger)
	if err != nil {
		return nil, err
	}
	a.Index = index

	a.Notes = note.New(pool, logger)
	a.Users = user.New(pool, logger)

	a.Indexer = indexer.New(a.Embedder, a.Index, a.Notes, logger)
	a.Worker = indexer.NewWorker(a.Indexer, logger)
	a.Engine = rag.New(a.Embedder, a.Index, a.Notes, a.Generator, cfg.TopK, cfg.ContextBudget, logger)

	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancel = cancel
	a.Worker.Start(workerCtx)

	return a, nil
}

// provideEmbedder looks up the embedder registered by the Gemini
// plugin.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
}

// provideIndex selects the vector backend. Postgres shares the note
// pool; memory serves development and tests.
func provideIndex(cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) (vecindex.Index, error) {
	switch cfg.VectorBackend {
	case config.VectorBackendMemory:
		return vecindex.NewMemory(logger)
	default:
		return vecindex.NewPostgres(pool, logger), nil
	}
}

// provideDBPool runs migrations and creates the connection pool.
// pgvector types are registered on every connection so vector
// parameters bind natively.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn) //nolint:wrapcheck
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}
