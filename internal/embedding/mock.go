package embedding

import (
	"context"
	"hash/fnv"
	"sync"
)

// MockClient returns deterministic vectors derived from the text hash, so
// equal texts embed identically. Vectors can be pinned per text and
// failures injected for tests.
type MockClient struct {
	model string
	dim   int

	mu      sync.Mutex
	fixed   map[string][]float32
	failing map[string]error
	// BatchErr, when set, fails every call with more than one text.
	BatchErr error
	calls    [][]string
}

func NewMockClient(model string, dim int) *MockClient {
	if model == "" {
		model = "mock-embedding"
	}
	if dim <= 0 {
		dim = 8
	}
	return &MockClient{
		model:   model,
		dim:     dim,
		fixed:   make(map[string][]float32),
		failing: make(map[string]error),
	}
}

// Set pins the vector returned for text.
func (m *MockClient) Set(text string, v []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fixed[text] = v
}

// Fail makes every call containing text return err.
func (m *MockClient) Fail(text string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing[text] = err
}

// Calls returns the batches received so far.
func (m *MockClient) Calls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, append([]string(nil), texts...))
	if m.BatchErr != nil && len(texts) > 1 {
		return nil, m.BatchErr
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err, ok := m.failing[t]; ok {
			return nil, err
		}
		if v, ok := m.fixed[t]; ok {
			out[i] = v
			continue
		}
		out[i] = hashVector(t, m.dim)
	}
	return out, nil
}

func (m *MockClient) ModelID() string { return m.model }

// hashVector spreads an FNV hash of text over dim components.
func hashVector(text string, dim int) []float32 {
	out := make([]float32, dim)
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()
	for i := range out {
		seed ^= seed << 13
		seed ^= seed >> 7
		seed ^= seed << 17
		out[i] = float32(int64(seed%2001)-1000) / 1000
	}
	return out
}
