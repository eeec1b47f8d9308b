package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"google.golang.org/genai"
)

// generateTimeout bounds a single generation call.
const generateTimeout = 60 * time.Second

// Generator maps a prompt onto synthesized text.
type Generator struct {
	g           *genkit.Genkit
	model       string
	temperature float32
	logger      *slog.Logger
}

// NewGenerator creates a generation client. model is the
// provider-qualified name, e.g. "googleai/gemini-2.5-flash".
func NewGenerator(g *genkit.Genkit, model string, temperature float32, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{g: g, model: model, temperature: temperature, logger: logger}
}

// Generate runs the model on prompt with the given system framing and
// returns the response text verbatim. Fails with ErrRateLimited,
// ErrTimeout, ErrContentFiltered or ErrUpstream.
func (gen *Generator) Generate(ctx context.Context, system, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: empty prompt", ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	start := time.Now()
	resp, err := genkit.Generate(ctx, gen.g,
		ai.WithModelName(gen.model),
		ai.WithSystem(system),
		ai.WithPrompt("%s", prompt),
		ai.WithConfig(&genai.GenerateContentConfig{
			Temperature: genai.Ptr(gen.temperature),
		}),
	)
	if err != nil {
		return "", fmt.Errorf("generating with %s: %w", gen.model, classify(err))
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty generation response", ErrUpstream)
	}

	gen.logger.Debug("generated answer",
		"model", gen.model,
		"prompt_chars", len(prompt),
		"answer_chars", len(text),
		"duration", time.Since(start),
	)
	return text, nil
}
