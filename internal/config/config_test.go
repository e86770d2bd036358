package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps the developer's real environment and config out of tests.
func isolate(t *testing.T) {
	t.Helper()
	for _, names := range envFallbacks {
		for _, n := range names {
			t.Setenv(n, "")
		}
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, _, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 0.86, cfg.Dedup.Threshold)
	assert.True(t, cfg.Dedup.WithinBatch)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.ModelName())
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "text-embedding-ada-002", cfg.Embedding.Model)
	assert.Equal(t, 1536, cfg.Embedding.Dimensions)
	assert.Equal(t, "sqlite", cfg.Corpus.Driver)
	assert.Equal(t, OnReadErrorFail, cfg.Corpus.OnReadError)
	assert.Equal(t, "corpus_entries", cfg.Corpus.Postgres.Table)
	assert.Equal(t, 3, cfg.LLM.Retry.MaxAttempts)
}

func TestLoad_File(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[dedup]
threshold = 0.9
within_batch = false

[embedding]
provider = "ollama"
model = "all-minilm"
dimensions = 384

[performance]
base_url = "https://api.example.com"
timeout = "5s"
optional = true
`), 0o644))

	cfg, _, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.9, cfg.Dedup.Threshold)
	assert.False(t, cfg.Dedup.WithinBatch)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, 384, cfg.Embedding.Dimensions)
	assert.Equal(t, 16, cfg.Embedding.BatchSize, "unset keys keep defaults")
	assert.Equal(t, 5*time.Second, cfg.Performance.Timeout)
	assert.True(t, cfg.Performance.Optional)
}

func TestLoad_DiscoversFileInWorkingDir(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile("mcqgen.toml", []byte("[corpus]\ndriver = \"postgres\"\n"), 0o644))

	cfg, _, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Corpus.Driver)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoad_Env(t *testing.T) {
	isolate(t)
	t.Setenv("MCQGEN_DEDUP_THRESHOLD", "0.75")
	t.Setenv("MCQGEN_LLM_PROVIDER", "openai")
	t.Setenv("MCQGEN_EMBEDDING_BATCH_SIZE", "32")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("GOOGLE_API_KEY", "g-test")

	cfg, _, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 0.75, cfg.Dedup.Threshold)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 32, cfg.Embedding.BatchSize)
	assert.Equal(t, "sk-test", cfg.LLM.OpenAI.APIKey)
	assert.Equal(t, "sk-test", cfg.Embedding.OpenAI.APIKey)
	assert.Equal(t, "g-test", cfg.LLM.Gemini.APIKey)
}

func TestLoad_PrefixedKeyWinsOverFallback(t *testing.T) {
	isolate(t)
	t.Setenv("GEMINI_API_KEY", "fallback")
	t.Setenv("MCQGEN_LLM_GEMINI_API_KEY", "explicit")

	cfg, _, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.LLM.Gemini.APIKey)
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.LLM.Gemini.APIKey = "g"
	valid.Embedding.OpenAI.APIKey = "o"
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"threshold zero", func(c *Config) { c.Dedup.Threshold = 0 }},
		{"threshold above one", func(c *Config) { c.Dedup.Threshold = 1.2 }},
		{"missing llm key", func(c *Config) { c.LLM.Gemini.APIKey = "" }},
		{"missing embedding key", func(c *Config) { c.Embedding.OpenAI.APIKey = "" }},
		{"zero dimensions", func(c *Config) { c.Embedding.Dimensions = 0 }},
		{"unknown driver", func(c *Config) { c.Corpus.Driver = "mysql" }},
		{"postgres without dsn", func(c *Config) { c.Corpus.Driver = "postgres" }},
		{"bad read policy", func(c *Config) { c.Corpus.OnReadError = "ignore" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
