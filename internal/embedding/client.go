// Package embedding turns question text into unit-length vectors using a
// hosted or local embedding model.
package embedding

import (
	"context"
	"fmt"
)

// Client is a raw embedding backend. EmbedBatch returns one vector per
// input, in input order, or an error for the whole batch.
type Client interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// ModelID identifies the model; corpora are scoped by it.
	ModelID() string
}

// NewClient builds the backend selected by cfg.Provider.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIClient(cfg.OpenAI, cfg.Model, cfg.Dimensions)
	case "gemini":
		return NewGeminiClient(ctx, cfg.Gemini, cfg.Model, cfg.Dimensions)
	case "ollama":
		return NewOllamaClient(cfg.Ollama, cfg.Model)
	case "mock":
		return NewMockClient(cfg.Model, cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", cfg.Provider)
	}
}
