// Package config loads mcqgen settings from defaults, an optional
// mcqgen.toml, and MCQGEN_* environment variables.
package config

import (
	"fmt"

	"github.com/abhisek/mcqgen/internal/corpus/postgres"
	"github.com/abhisek/mcqgen/internal/dedup"
	"github.com/abhisek/mcqgen/internal/embedding"
	"github.com/abhisek/mcqgen/internal/llm"
	"github.com/abhisek/mcqgen/internal/mcq"
	"github.com/abhisek/mcqgen/internal/performance"
)

// Corpus read failure policies.
const (
	OnReadErrorFail  = "fail"
	OnReadErrorEmpty = "empty"
)

type Config struct {
	// DB is the SQLite database path. Empty means the XDG data dir.
	DB string `mapstructure:"db"`

	LLM         llm.Config         `mapstructure:"llm"`
	Generation  mcq.Config         `mapstructure:"generation"`
	Embedding   embedding.Config   `mapstructure:"embedding"`
	Dedup       dedup.Config       `mapstructure:"dedup"`
	Corpus      CorpusConfig       `mapstructure:"corpus"`
	Performance performance.Config `mapstructure:"performance"`
	Log         LogConfig          `mapstructure:"log"`
}

type CorpusConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `mapstructure:"driver"`

	// OnReadError is "fail" to abort a run when the corpus cannot be read,
	// or "empty" to continue against an empty corpus.
	OnReadError string `mapstructure:"on_read_error"`

	Postgres postgres.Config `mapstructure:"postgres"`
}

type LogConfig struct {
	Debug  bool `mapstructure:"debug"`
	JSON   bool `mapstructure:"json"`
	Pretty bool `mapstructure:"pretty"`
}

// Default is the single source of default values.
func Default() Config {
	return Config{
		LLM:         llm.DefaultConfig(),
		Generation:  mcq.DefaultConfig(),
		Embedding:   embedding.DefaultConfig(),
		Dedup:       dedup.DefaultConfig(),
		Performance: performance.DefaultConfig(),
		Corpus: CorpusConfig{
			Driver:      "sqlite",
			OnReadError: OnReadErrorFail,
			Postgres:    postgres.DefaultConfig(),
		},
		Log: LogConfig{Pretty: true},
	}
}

// Validate checks everything a generate run needs.
func (c Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	if err := c.Embedding.Validate(); err != nil {
		return err
	}
	if err := c.Dedup.Validate(); err != nil {
		return fmt.Errorf("dedup.threshold: %w", err)
	}
	if err := c.Corpus.Validate(); err != nil {
		return err
	}
	return nil
}

func (c CorpusConfig) Validate() error {
	switch c.Driver {
	case "sqlite":
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("corpus.postgres.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown corpus driver: %q", c.Driver)
	}
	switch c.OnReadError {
	case OnReadErrorFail, OnReadErrorEmpty:
	default:
		return fmt.Errorf("corpus.on_read_error must be %q or %q, got %q", OnReadErrorFail, OnReadErrorEmpty, c.OnReadError)
	}
	return nil
}
