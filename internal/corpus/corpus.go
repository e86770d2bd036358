// Package corpus defines the store of embeddings for every question ever
// accepted, against which new candidates are deduplicated.
package corpus

import (
	"context"
	"errors"
	"fmt"

	"github.com/abhisek/mcqgen/internal/vector"
)

// ErrDimensionMismatch reports a stored or appended vector whose dimension
// differs from the corpus dimension.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Entry is one stored embedding. QuestionID is kept for auditing only; it
// plays no part in similarity.
type Entry struct {
	QuestionID string
	Model      string
	Vector     vector.Vector
}

// Corpus is an append-only collection of embeddings for a single embedding
// model.
type Corpus interface {
	// LoadAll returns every entry with a non-empty vector. Vectors are
	// renormalized on the way out.
	LoadAll(ctx context.Context) ([]Entry, error)

	// Append persists a single entry atomically.
	Append(ctx context.Context, v vector.Vector, questionID string) error
}

// ReadError wraps a failure to load the corpus.
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("corpus read failed: %v", e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Vectors extracts the vectors of entries, in order.
func Vectors(entries []Entry) []vector.Vector {
	out := make([]vector.Vector, len(entries))
	for i, e := range entries {
		out[i] = e.Vector
	}
	return out
}

// Decode turns a raw stored vector into a corpus vector. An empty raw vector
// returns (nil, false) and should be skipped. A dimension other than dim is
// ErrDimensionMismatch; dim <= 0 disables the check.
func Decode(raw []float32, dim int) (vector.Vector, bool, error) {
	if len(raw) == 0 {
		return nil, false, nil
	}
	if dim > 0 && len(raw) != dim {
		return nil, false, fmt.Errorf("%w: stored %d, expected %d", ErrDimensionMismatch, len(raw), dim)
	}
	return vector.Normalize(raw), true, nil
}
