package mcq

import (
	"context"

	"github.com/abhisek/mcqgen/internal/llm"
)

// Generator sends a prompt to a generative model and returns its raw text.
type Generator interface {
	// Generate returns the model output for prompt. Failures are
	// *GenerationError.
	Generate(ctx context.Context, prompt string) (string, error)
}

// LLMGenerator implements Generator on top of an llm.Provider.
type LLMGenerator struct {
	provider llm.Provider
	config   Config
}

// NewGenerator creates an LLMGenerator with the given provider and config.
func NewGenerator(provider llm.Provider, cfg Config) *LLMGenerator {
	return &LLMGenerator{provider: provider, config: cfg}
}

// Generate issues a single-turn request. Retries, if any, belong to the
// provider (see llm.RetryProvider).
func (g *LLMGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx = llm.WithPurpose(ctx, "mcq-gen")
	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}

	req := llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: prompt},
		},
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	}
	if g.config.StructuredOutput {
		req.Schema = QuestionSetSchema
	}

	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		return "", &GenerationError{Model: g.provider.ModelID(), Err: err}
	}
	return resp.Text(), nil
}

// ModelID returns the underlying provider's model.
func (g *LLMGenerator) ModelID() string {
	return g.provider.ModelID()
}
