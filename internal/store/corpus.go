package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/mcqgen/internal/corpus"
	"github.com/abhisek/mcqgen/internal/vector"
)

// CorpusRepo is the SQLite corpus for a single embedding model.
type CorpusRepo struct {
	db    *sql.DB
	mu    *sync.Mutex
	model string
	dim   int
}

var _ corpus.Corpus = (*CorpusRepo)(nil)

// Model returns the embedding model this corpus is scoped to.
func (r *CorpusRepo) Model() string { return r.model }

// LoadAll returns every non-empty entry for the model in insertion order.
// Failures are *corpus.ReadError.
func (r *CorpusRepo) LoadAll(ctx context.Context) ([]corpus.Entry, error) {
	query, args := builder().Select("question_id", "embedding").
		From(entsql.Table(corpusEntriesTable.Name)).
		Where(entsql.And(
			entsql.EQ("model", r.model),
			entsql.NotNull("embedding"),
		)).
		OrderBy("id").
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &corpus.ReadError{Err: err}
	}
	defer rows.Close()

	var out []corpus.Entry
	for rows.Next() {
		var questionID string
		var blob []byte
		if err := rows.Scan(&questionID, &blob); err != nil {
			return nil, &corpus.ReadError{Err: err}
		}
		raw, err := decodeVector(blob)
		if err != nil {
			return nil, &corpus.ReadError{Err: fmt.Errorf("entry for %s: %w", questionID, err)}
		}
		v, ok, err := corpus.Decode(raw, r.dim)
		if err != nil {
			return nil, &corpus.ReadError{Err: fmt.Errorf("entry for %s: %w", questionID, err)}
		}
		if !ok {
			continue
		}
		out = append(out, corpus.Entry{QuestionID: questionID, Model: r.model, Vector: v})
	}
	if err := rows.Err(); err != nil {
		return nil, &corpus.ReadError{Err: err}
	}
	return out, nil
}

// Append inserts one row. Appends are serialized within the process;
// SQLite's write lock covers other processes.
func (r *CorpusRepo) Append(ctx context.Context, v vector.Vector, questionID string) error {
	if r.dim > 0 && len(v) != r.dim {
		return fmt.Errorf("append %s: %w: got %d, expected %d", questionID, corpus.ErrDimensionMismatch, len(v), r.dim)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	query, args := builder().Insert(corpusEntriesTable.Name).
		Columns("question_id", "model", "dimensions", "embedding", "created_at").
		Values(questionID, r.model, len(v), encodeVector(v), time.Now().UTC()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append corpus entry for %s: %w", questionID, err)
	}
	return nil
}

// CorpusStats summarizes entries per model across the whole table.
func (s *Store) CorpusStats(ctx context.Context) ([]CorpusStat, error) {
	query, args := builder().Select(
		"model",
		entsql.As(entsql.Max("dimensions"), "dimensions"),
		entsql.As(entsql.Count("*"), "entries"),
		entsql.As("SUM(CASE WHEN embedding IS NULL OR length(embedding) = 0 THEN 1 ELSE 0 END)", "empty"),
	).
		From(entsql.Table(corpusEntriesTable.Name)).
		GroupBy("model").
		OrderBy("model").
		Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query corpus stats: %w", err)
	}
	defer rows.Close()

	var out []CorpusStat
	for rows.Next() {
		var st CorpusStat
		if err := rows.Scan(&st.Model, &st.Dimensions, &st.Entries, &st.Empty); err != nil {
			return nil, fmt.Errorf("scan corpus stats: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// encodeVector packs v as little-endian float32s.
func encodeVector(v vector.Vector) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("embedding blob has %d bytes, not a multiple of 4", len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}
