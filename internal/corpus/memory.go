package corpus

import (
	"context"
	"fmt"
	"sync"

	"github.com/abhisek/mcqgen/internal/vector"
)

// Memory is an in-process Corpus, used for dry runs and tests.
type Memory struct {
	mu      sync.Mutex
	model   string
	dim     int
	entries []Entry

	// LoadErr, when set, is returned (wrapped in ReadError) by LoadAll.
	LoadErr error
}

// NewMemory returns an empty corpus for model. dim <= 0 accepts any
// dimension.
func NewMemory(model string, dim int) *Memory {
	return &Memory{model: model, dim: dim}
}

// Seed returns a Memory holding a copy of entries, e.g. a snapshot of a
// persistent corpus for a dry run.
func Seed(model string, dim int, entries []Entry) *Memory {
	m := NewMemory(model, dim)
	m.entries = append(m.entries, entries...)
	return m
}

func (m *Memory) LoadAll(_ context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.LoadErr != nil {
		return nil, &ReadError{Err: m.LoadErr}
	}

	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		v, ok, err := Decode(e.Vector, m.dim)
		if err != nil {
			return nil, &ReadError{Err: err}
		}
		if !ok {
			continue
		}
		out = append(out, Entry{QuestionID: e.QuestionID, Model: m.model, Vector: v})
	}
	return out, nil
}

func (m *Memory) Append(_ context.Context, v vector.Vector, questionID string) error {
	if m.dim > 0 && len(v) != m.dim {
		return fmt.Errorf("append %s: %w: got %d, expected %d", questionID, ErrDimensionMismatch, len(v), m.dim)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, Entry{QuestionID: questionID, Model: m.model, Vector: v.Clone()})
	return nil
}

// Len returns the number of stored entries, including empty ones.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
