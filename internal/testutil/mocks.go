package testutil

import (
	"context"
	"sync"
)

// ScriptedEmbedder returns pre-assigned vectors per input text, so
// similarity tests control exactly which documents rank where. Unknown
// texts fall back to Default; a nil Default means Err (or a zero-value
// error if Err is nil too, which most tests want to avoid).
type ScriptedEmbedder struct {
	mu      sync.Mutex
	Vectors map[string][]float32
	Default []float32
	Err     error
	Calls   int
}

func (e *ScriptedEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Calls++
	if e.Err != nil {
		return nil, e.Err
	}
	if v, ok := e.Vectors[text]; ok {
		return v, nil
	}
	return e.Default, nil
}

// CallCount returns how many times Embed ran.
func (e *ScriptedEmbedder) CallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Calls
}

// ScriptedGenerator records the prompts it gets and returns a fixed
// reply.
type ScriptedGenerator struct {
	mu         sync.Mutex
	Reply      string
	Err        error
	Calls      int
	LastSystem string
	LastPrompt string
}

func (g *ScriptedGenerator) Generate(_ context.Context, system, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Calls++
	g.LastSystem = system
	g.LastPrompt = prompt
	if g.Err != nil {
		return "", g.Err
	}
	return g.Reply, nil
}

// CallCount returns how many times Generate ran.
func (g *ScriptedGenerator) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Calls
}

// Prompt returns the last prompt Generate received.
func (g *ScriptedGenerator) Prompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.LastPrompt
}
