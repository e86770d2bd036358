// Package postgres stores the question embedding corpus in PostgreSQL with
// the pgvector extension.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/Masterminds/squirrel"
	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/abhisek/mcqgen/internal/corpus"
	"github.com/abhisek/mcqgen/internal/vector"
)

// Config names the corpus table and its columns, so an existing question
// table with an embedding column can be used directly.
type Config struct {
	DSN              string `mapstructure:"dsn"`
	Table            string `mapstructure:"table"`
	QuestionIDColumn string `mapstructure:"question_id_column"`
	ModelColumn      string `mapstructure:"model_column"`
	VectorColumn     string `mapstructure:"vector_column"`

	// CreateSchema creates the extension and table on open.
	CreateSchema bool `mapstructure:"create_schema"`
}

func DefaultConfig() Config {
	return Config{
		Table:            "corpus_entries",
		QuestionIDColumn: "question_id",
		ModelColumn:      "model",
		VectorColumn:     "embedding",
		CreateSchema:     true,
	}
}

// Corpus implements corpus.Corpus for one embedding model.
type Corpus struct {
	db    *sql.DB
	pool  *pgxpool.Pool
	sb    squirrel.StatementBuilderType
	cfg   Config
	model string
	dim   int
	mu    sync.Mutex
}

var _ corpus.Corpus = (*Corpus)(nil)

// New wraps an open database. Empty config names fall back to the defaults.
func New(db *sql.DB, cfg Config, model string, dim int) *Corpus {
	def := DefaultConfig()
	if cfg.Table == "" {
		cfg.Table = def.Table
	}
	if cfg.QuestionIDColumn == "" {
		cfg.QuestionIDColumn = def.QuestionIDColumn
	}
	if cfg.ModelColumn == "" {
		cfg.ModelColumn = def.ModelColumn
	}
	if cfg.VectorColumn == "" {
		cfg.VectorColumn = def.VectorColumn
	}
	return &Corpus{
		db:    db,
		sb:    squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).RunWith(db),
		cfg:   cfg,
		model: model,
		dim:   dim,
	}
}

// Open connects through a pgx pool with pgvector types registered and
// optionally creates the schema. Close the returned corpus when done.
func Open(ctx context.Context, cfg Config, model string, dim int) (*Corpus, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	db := sql.OpenDB(stdlib.GetPoolConnector(pool))
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	c := New(db, cfg, model, dim)
	c.pool = pool
	if cfg.CreateSchema {
		if err := c.EnsureSchema(ctx); err != nil {
			db.Close()
			pool.Close()
			return nil, err
		}
	}
	return c, nil
}

// Close closes the database and, when opened with Open, the pool.
func (c *Corpus) Close() error {
	err := c.db.Close()
	if c.pool != nil {
		c.pool.Close()
	}
	return err
}

// Model returns the embedding model this corpus is scoped to.
func (c *Corpus) Model() string { return c.model }

// EnsureSchema creates the vector extension and the corpus table.
func (c *Corpus) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	%s TEXT NOT NULL,
	%s TEXT NOT NULL,
	%s vector(%d),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, c.cfg.Table, c.cfg.QuestionIDColumn, c.cfg.ModelColumn, c.cfg.VectorColumn, c.dim),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_%s_idx ON %s (%s)",
			c.cfg.Table, c.cfg.ModelColumn, c.cfg.Table, c.cfg.ModelColumn),
	}
	for _, s := range stmts {
		if _, err := c.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("create corpus schema: %w", err)
		}
	}
	return nil
}

// LoadAll returns every entry for the model with a non-null vector, oldest
// first. Failures are *corpus.ReadError.
func (c *Corpus) LoadAll(ctx context.Context) ([]corpus.Entry, error) {
	// Vectors are read in their text form, which pgvector.Vector scans
	// regardless of the wire format negotiated for the column.
	rows, err := c.sb.
		Select(c.cfg.QuestionIDColumn, c.cfg.VectorColumn+"::text").
		From(c.cfg.Table).
		Where(squirrel.Eq{c.cfg.ModelColumn: c.model}).
		Where(squirrel.NotEq{c.cfg.VectorColumn: nil}).
		OrderBy("id").
		QueryContext(ctx)
	if err != nil {
		return nil, &corpus.ReadError{Err: err}
	}
	defer rows.Close() //nolint:errcheck

	var out []corpus.Entry
	for rows.Next() {
		var questionID string
		var v pgvector.Vector
		if err := rows.Scan(&questionID, &v); err != nil {
			return nil, &corpus.ReadError{Err: err}
		}
		vec, ok, err := corpus.Decode(v.Slice(), c.dim)
		if err != nil {
			return nil, &corpus.ReadError{Err: fmt.Errorf("entry for %s: %w", questionID, err)}
		}
		if !ok {
			continue
		}
		out = append(out, corpus.Entry{QuestionID: questionID, Model: c.model, Vector: vec})
	}
	if err := rows.Err(); err != nil {
		return nil, &corpus.ReadError{Err: err}
	}
	return out, nil
}

// Append inserts one row. Appends are serialized within the process; the
// single INSERT is atomic in PostgreSQL.
func (c *Corpus) Append(ctx context.Context, v vector.Vector, questionID string) error {
	if c.dim > 0 && len(v) != c.dim {
		return fmt.Errorf("append %s: %w: got %d, expected %d", questionID, corpus.ErrDimensionMismatch, len(v), c.dim)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.sb.
		Insert(c.cfg.Table).
		Columns(c.cfg.QuestionIDColumn, c.cfg.ModelColumn, c.cfg.VectorColumn).
		Values(questionID, c.model, pgvector.NewVector(v)).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("append %s: %w", questionID, err)
	}
	return nil
}

// Count returns the number of entries with a vector for the model.
func (c *Corpus) Count(ctx context.Context) (int, error) {
	var n int
	err := c.sb.
		Select("COUNT(*)").
		From(c.cfg.Table).
		Where(squirrel.Eq{c.cfg.ModelColumn: c.model}).
		Where(squirrel.NotEq{c.cfg.VectorColumn: nil}).
		QueryRowContext(ctx).
		Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count corpus entries: %w", err)
	}
	return n, nil
}
