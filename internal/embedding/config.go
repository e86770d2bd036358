package embedding

import (
	"fmt"
	"time"
)

// Config selects the embedding backend and controls batching.
type Config struct {
	// Provider is one of "openai", "gemini", "ollama", "mock".
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`

	// Dimensions is the expected vector size. Vectors of any other size are
	// rejected per item.
	Dimensions int `mapstructure:"dimensions"`

	BatchSize   int `mapstructure:"batch_size"`
	Concurrency int `mapstructure:"concurrency"`

	// RequestsPerSecond paces backend calls; zero disables pacing.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`

	// MaxInputChars rejects longer texts per item; zero disables the check.
	MaxInputChars int `mapstructure:"max_input_chars"`

	OpenAI OpenAIConfig `mapstructure:"openai"`
	Gemini GeminiConfig `mapstructure:"gemini"`
	Ollama OllamaConfig `mapstructure:"ollama"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type OllamaConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DefaultConfig matches the corpus built by the original deployment:
// OpenAI text-embedding-ada-002, 1536 dimensions.
func DefaultConfig() Config {
	return Config{
		Provider:          "openai",
		Model:             "text-embedding-ada-002",
		Dimensions:        1536,
		BatchSize:         16,
		Concurrency:       4,
		RequestsPerSecond: 5,
		MaxInputChars:     8000,
		Ollama: OllamaConfig{
			BaseURL: DefaultOllamaBaseURL,
			Timeout: 60 * time.Second,
		},
	}
}

// Validate checks the settings needed to build a client.
func (c Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive (got %d)", c.Dimensions)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("embedding.batch_size must be positive (got %d)", c.BatchSize)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("embedding.concurrency must be positive (got %d)", c.Concurrency)
	}
	switch c.Provider {
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("embedding.openai.api_key (or OPENAI_API_KEY) is required for the openai provider")
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("embedding.gemini.api_key (or GEMINI_API_KEY) is required for the gemini provider")
		}
	case "ollama", "mock":
	default:
		return fmt.Errorf("unknown embedding provider: %q", c.Provider)
	}
	return nil
}
