package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/abhisek/mcqgen/internal/vector"
)

// Result is the outcome for one input text. Exactly one of Vector and Err
// is set; Err is always an *EmbeddingError.
type Result struct {
	Vector vector.Vector
	Err    error
}

// OK reports whether the text was embedded.
func (r Result) OK() bool { return r.Err == nil }

// Embedder batches texts over a Client and turns raw outputs into unit
// vectors of a fixed dimension.
type Embedder struct {
	client        Client
	dim           int
	batchSize     int
	concurrency   int
	maxInputChars int
	limiter       *rate.Limiter
	logger        *slog.Logger
}

// NewEmbedder wraps client with the batching settings from cfg. A nil logger
// discards output.
func NewEmbedder(client Client, cfg Config, logger *slog.Logger) *Embedder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	e := &Embedder{
		client:        client,
		dim:           cfg.Dimensions,
		batchSize:     max(cfg.BatchSize, 1),
		concurrency:   max(cfg.Concurrency, 1),
		maxInputChars: cfg.MaxInputChars,
		limiter:       rate.NewLimiter(rate.Inf, 1),
		logger:        logger,
	}
	if cfg.RequestsPerSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(cfg.Concurrency, 1))
	}
	return e
}

// ModelID is the model of the underlying client.
func (e *Embedder) ModelID() string { return e.client.ModelID() }

// Dimensions is the vector size every result must have.
func (e *Embedder) Dimensions() int { return e.dim }

// Embed returns one Result per text in input order. Individual failures are
// reported in the Result; the returned error is non-nil only when ctx ends.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([]Result, error) {
	results := make([]Result, len(texts))

	var idx []int
	var inputs []string
	for i, t := range texts {
		n := NormalizeText(t)
		switch {
		case n == "":
			results[i].Err = &EmbeddingError{Index: i, Reason: "empty text"}
			continue
		case e.maxInputChars > 0 && utf8.RuneCountInString(n) > e.maxInputChars:
			results[i].Err = &EmbeddingError{
				Index:  i,
				Reason: fmt.Sprintf("text exceeds %d characters", e.maxInputChars),
			}
			continue
		}
		idx = append(idx, i)
		inputs = append(inputs, n)
	}

	g := new(errgroup.Group)
	g.SetLimit(e.concurrency)

	for start := 0; start < len(inputs); start += e.batchSize {
		end := min(start+e.batchSize, len(inputs))
		chunkIdx := idx[start:end]
		chunk := inputs[start:end]

		g.Go(func() error {
			return e.embedChunk(ctx, chunkIdx, chunk, results)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// embedChunk embeds one chunk, falling back to one call per text when the
// chunk call fails. Only a done ctx is returned as an error.
func (e *Embedder) embedChunk(ctx context.Context, idx []int, texts []string, results []Result) error {
	vecs, err := e.call(ctx, texts)
	if err == nil {
		for j, v := range vecs {
			results[idx[j]] = e.accept(idx[j], v)
		}
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if len(texts) > 1 {
		e.logger.Warn("embedding batch failed, retrying items individually",
			"model", e.client.ModelID(), "size", len(texts), "error", err)
	}

	for j, t := range texts {
		if len(texts) > 1 {
			vecs, err = e.call(ctx, []string{t})
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			results[idx[j]] = Result{Err: &EmbeddingError{Index: idx[j], Reason: "backend call failed", Err: err}}
			continue
		}
		results[idx[j]] = e.accept(idx[j], vecs[0])
	}
	return nil
}

func (e *Embedder) call(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	vecs, err := e.client.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("backend returned %d vectors for %d texts", len(vecs), len(texts))
	}
	return vecs, nil
}

func (e *Embedder) accept(i int, raw []float32) Result {
	if len(raw) == 0 {
		return Result{Err: &EmbeddingError{Index: i, Reason: "empty vector"}}
	}
	if e.dim > 0 && len(raw) != e.dim {
		return Result{Err: &EmbeddingError{
			Index:  i,
			Reason: fmt.Sprintf("dimension %d, want %d", len(raw), e.dim),
		}}
	}
	return Result{Vector: vector.Normalize(raw)}
}
