package mcq

import "time"

// Config controls the behavior of the LLMGenerator.
type Config struct {
	// MaxTokens is the token budget for the model response. Large enough for
	// a few dozen questions.
	MaxTokens int `mapstructure:"max_tokens"`

	// Temperature controls output randomness (0.0-1.0).
	Temperature float64 `mapstructure:"temperature"`

	// StructuredOutput sends QuestionSetSchema with the request so providers
	// with native structured output return a {"questions": [...]} object.
	StructuredOutput bool `mapstructure:"structured_output"`

	// Timeout bounds one Generate call, provider retries included.
	Timeout time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns the recommended generation settings.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   8192,
		Temperature: 0.7,
		Timeout:     120 * time.Second,
	}
}
