// Package observability exports Genkit traces over OTLP so embedding,
// retrieval and generation spans land in whatever collector the
// deployment runs.
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config for the OTLP trace exporter.
type Config struct {
	// Endpoint is the OTLP HTTP collector address (host:port). Empty
	// disables tracing entirely.
	Endpoint    string
	ServiceName string
	Environment string
}

// Setup registers an OTLP HTTP span exporter on Genkit's tracer
// provider, so pipeline spans flow to the collector without any extra
// instrumentation. Returns a shutdown func that flushes pending spans.
func Setup(ctx context.Context, cfg Config, logger *slog.Logger) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }
	if cfg.Endpoint == "" {
		return noop, nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Genkit's TracerProvider reads the service identity from the
	// standard OTEL environment variables.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("failed to create OTLP exporter, tracing disabled", "error", err)
		return noop, nil
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("tracing enabled", "endpoint", cfg.Endpoint, "service", cfg.ServiceName)
	return func(ctx context.Context) error {
		return processor.Shutdown(ctx) //nolint:wrapcheck
	}, nil
}
