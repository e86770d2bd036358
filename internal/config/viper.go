package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. MCQGEN_DEDUP_THRESHOLD.
const EnvPrefix = "MCQGEN"

// Well-known provider variables accepted in addition to the MCQGEN_ names.
var envFallbacks = map[string][]string{
	"llm.gemini.api_key":       {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"llm.openai.api_key":       {"OPENAI_API_KEY"},
	"llm.anthropic.api_key":    {"ANTHROPIC_API_KEY"},
	"llm.openrouter.api_key":   {"OPENROUTER_API_KEY"},
	"embedding.openai.api_key": {"OPENAI_API_KEY"},
	"embedding.gemini.api_key": {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"performance.token":        {"ASSESSMENT_API_TOKEN"},
	"corpus.postgres.dsn":      {"DATABASE_URL"},
}

// Load reads configuration. An explicit configFile must exist; otherwise
// mcqgen.toml is looked up in the working directory and
// $XDG_CONFIG_HOME/mcqgen, and a missing file is fine.
//
// Precedence, highest first: environment, config file, defaults.
func Load(configFile string) (Config, *viper.Viper, error) {
	v := viper.New()
	setViperDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("mcqgen")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		if dir := configDir(); dir != "" {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if configFile != "" || !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return Config{}, nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range envFallbacks {
		envs := append([]string{EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return Config{}, nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, nil, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, v, nil
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "mcqgen")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "mcqgen")
}

// setViperDefaults registers defaults under dotted keys so AutomaticEnv can
// override them.
func setViperDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("db", d.DB)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.gemini.model", d.LLM.Gemini.Model)
	v.SetDefault("llm.openai.model", d.LLM.OpenAI.Model)
	v.SetDefault("llm.openai.base_url", d.LLM.OpenAI.BaseURL)
	v.SetDefault("llm.anthropic.model", d.LLM.Anthropic.Model)
	v.SetDefault("llm.anthropic.base_url", d.LLM.Anthropic.BaseURL)
	v.SetDefault("llm.openrouter.model", d.LLM.OpenRouter.Model)
	v.SetDefault("llm.openrouter.base_url", d.LLM.OpenRouter.BaseURL)
	v.SetDefault("llm.retry.max_attempts", d.LLM.Retry.MaxAttempts)
	v.SetDefault("llm.retry.initial_wait", d.LLM.Retry.InitialWait)
	v.SetDefault("llm.retry.max_wait", d.LLM.Retry.MaxWait)
	v.SetDefault("llm.retry.multiplier", d.LLM.Retry.Multiplier)

	v.SetDefault("generation.max_tokens", d.Generation.MaxTokens)
	v.SetDefault("generation.temperature", d.Generation.Temperature)
	v.SetDefault("generation.structured_output", d.Generation.StructuredOutput)
	v.SetDefault("generation.timeout", d.Generation.Timeout)

	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.batch_size", d.Embedding.BatchSize)
	v.SetDefault("embedding.concurrency", d.Embedding.Concurrency)
	v.SetDefault("embedding.requests_per_second", d.Embedding.RequestsPerSecond)
	v.SetDefault("embedding.max_input_chars", d.Embedding.MaxInputChars)
	v.SetDefault("embedding.openai.base_url", d.Embedding.OpenAI.BaseURL)
	v.SetDefault("embedding.ollama.base_url", d.Embedding.Ollama.BaseURL)
	v.SetDefault("embedding.ollama.timeout", d.Embedding.Ollama.Timeout)

	v.SetDefault("dedup.threshold", d.Dedup.Threshold)
	v.SetDefault("dedup.within_batch", d.Dedup.WithinBatch)

	v.SetDefault("corpus.driver", d.Corpus.Driver)
	v.SetDefault("corpus.on_read_error", d.Corpus.OnReadError)
	v.SetDefault("corpus.postgres.table", d.Corpus.Postgres.Table)
	v.SetDefault("corpus.postgres.question_id_column", d.Corpus.Postgres.QuestionIDColumn)
	v.SetDefault("corpus.postgres.model_column", d.Corpus.Postgres.ModelColumn)
	v.SetDefault("corpus.postgres.vector_column", d.Corpus.Postgres.VectorColumn)
	v.SetDefault("corpus.postgres.create_schema", d.Corpus.Postgres.CreateSchema)

	v.SetDefault("performance.base_url", d.Performance.BaseURL)
	v.SetDefault("performance.timeout", d.Performance.Timeout)
	v.SetDefault("performance.retries", d.Performance.Retries)
	v.SetDefault("performance.optional", d.Performance.Optional)

	v.SetDefault("log.debug", d.Log.Debug)
	v.SetDefault("log.json", d.Log.JSON)
	v.SetDefault("log.pretty", d.Log.Pretty)
}
