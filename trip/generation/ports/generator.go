package genports

import (
	"context"
)

// Options controls sampling and limits for a single generation call.
type Options struct {
	Model        string
	MaxNewTokens int
	Temperature  float32
	TopP         float32
	TopK         int
	Seed         int
}

// Generator is the abstraction for all text-generation backends.
// Implementations return the generated text or an error when the
// backend is unreachable or rejects the request; callers decide
// whether that failure is fatal.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string, opts Options) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	return f(ctx, prompt, opts)
}
