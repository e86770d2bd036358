package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/abhisek/mcqgen/internal/corpus"
	"github.com/abhisek/mcqgen/internal/dedup"
	"github.com/abhisek/mcqgen/internal/embedding"
	"github.com/abhisek/mcqgen/internal/llm"
	"github.com/abhisek/mcqgen/internal/mcq"
	"github.com/abhisek/mcqgen/internal/performance"
	"github.com/abhisek/mcqgen/internal/vector"
)

// --- fakes ---

type generatorFunc func(ctx context.Context, prompt string) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func staticGenerator(raw string) mcq.Generator {
	return generatorFunc(func(context.Context, string) (string, error) { return raw, nil })
}

// fakeEmbedder maps question text to a fixed vector. Unknown texts get a
// vector orthogonal to everything else in the test.
type fakeEmbedder struct {
	vectors map[string]vector.Vector
	failing map[string]bool
	next    int
	calls   int
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{vectors: map[string]vector.Vector{}, failing: map[string]bool{}}
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([]embedding.Result, error) {
	f.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]embedding.Result, len(texts))
	for i, t := range texts {
		if f.failing[t] {
			out[i].Err = &embedding.EmbeddingError{Index: i, Reason: "backend call failed"}
			continue
		}
		v, ok := f.vectors[t]
		if !ok {
			v = basis(f.next)
			f.next++
			f.vectors[t] = v
		}
		out[i].Vector = v
	}
	return out, nil
}

func (f *fakeEmbedder) ModelID() string { return "fake-embed" }

type failingFetcher struct{ err error }

func (f failingFetcher) Fetch(context.Context, string) (json.RawMessage, error) { return nil, f.err }

const dim = 16

// basis returns the i-th standard basis vector; distinct ones are orthogonal.
func basis(i int) vector.Vector {
	v := make([]float32, dim)
	v[i%dim] = 1
	return vector.Normalize(v)
}

// near returns a unit vector with cosine c to basis(i).
func near(i int, c float64) vector.Vector {
	v := make([]float32, dim)
	v[i%dim] = float32(c)
	v[(i+1)%dim] = float32(math.Sqrt(1 - c*c))
	return vector.Normalize(v)
}

// --- helpers ---

func item(topic, question string) map[string]any {
	return map[string]any{
		"topic":      topic,
		"difficulty": "Easy",
		"question":   question,
		"options":    []string{"1", "2", "3", "4"},
		"answer":     "4",
	}
}

func rawOutput(t *testing.T, items ...map[string]any) string {
	t.Helper()
	b, err := json.Marshal(items)
	if err != nil {
		t.Fatal(err)
	}
	return "Here are your questions:\n" + string(b) + "\nEnjoy!"
}

func request(n int) mcq.GenerationRequest {
	return mcq.GenerationRequest{
		Difficulty: "Easy",
		Topics:     []mcq.TopicCount{{Name: "Arithmetic", Count: n}},
		Audience:   "Beginners",
	}
}

func newPipeline(t *testing.T, gen mcq.Generator, emb Embedder, c corpus.Corpus, cfg Config, opts ...Option) *Pipeline {
	t.Helper()
	p, err := New(gen, emb, c, cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func requireRunError(t *testing.T, err error, stage State) *RunError {
	t.Helper()
	var runErr *RunError
	if !errors.As(err, &runErr) {
		t.Fatalf("expected *RunError, got %T: %v", err, err)
	}
	if runErr.Stage != stage {
		t.Fatalf("expected failure after %s, got %s", stage, runErr.Stage)
	}
	return runErr
}

// --- scenarios ---

func TestRun_EmptyCorpusAcceptsAndAppends(t *testing.T) {
	emb := newFakeEmbedder()
	emb.vectors["What is 2+2?"] = basis(0)
	mem := corpus.NewMemory("fake-embed", dim)

	p := newPipeline(t, staticGenerator(rawOutput(t, item("Arithmetic", "What is 2+2?"))), emb, mem, DefaultConfig())
	res, err := p.Run(context.Background(), Params{Request: request(1)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.State != StateDone {
		t.Fatalf("expected done, got %s", res.State)
	}
	if len(res.Accepted) != 1 || res.Accepted[0].ID == "" {
		t.Fatalf("expected one accepted question with an ID, got %+v", res.Accepted)
	}
	if res.Decisions[0].IsDuplicate {
		t.Fatal("expected unique decision")
	}

	entries, _ := mem.LoadAll(context.Background())
	if len(entries) != 1 || entries[0].QuestionID != res.Accepted[0].ID {
		t.Fatalf("expected corpus to contain the accepted vector, got %+v", entries)
	}
	if vector.Cosine(entries[0].Vector, basis(0)) < 0.999 {
		t.Fatal("corpus vector differs from the candidate vector")
	}
}

func TestRun_CorpusDuplicateExcludedFromOutput(t *testing.T) {
	emb := newFakeEmbedder()
	emb.vectors["What is 3+3?"] = near(0, 0.95)
	emb.vectors["Name a prime"] = basis(5)
	mem := corpus.Seed("fake-embed", dim, []corpus.Entry{{QuestionID: "old", Vector: basis(0)}})

	raw := rawOutput(t, item("Arithmetic", "What is 3+3?"), item("Arithmetic", "Name a prime"))
	p := newPipeline(t, staticGenerator(raw), emb, mem, DefaultConfig())
	res, err := p.Run(context.Background(), Params{Request: request(2)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Counts.Accepted != 1 || res.Counts.Duplicates != 1 {
		t.Fatalf("expected 1 accepted / 1 duplicate, got %+v", res.Counts)
	}
	if res.Accepted[0].Question != "Name a prime" {
		t.Fatalf("wrong question accepted: %q", res.Accepted[0].Question)
	}
	d := res.Decisions[0]
	if !d.IsDuplicate || d.Source != dedup.SourceCorpus || d.MatchedSimilarity == nil {
		t.Fatalf("unexpected decision %+v", d)
	}
	if dups := res.Duplicates(); len(dups) != 1 || dups[0].Question != "What is 3+3?" {
		t.Fatalf("Duplicates() = %+v", dups)
	}
	if mem.Len() != 2 {
		t.Fatalf("expected only the unique vector appended, corpus has %d", mem.Len())
	}
	if res.CorpusSize != 1 {
		t.Fatalf("expected corpus snapshot of 1, got %d", res.CorpusSize)
	}
}

func TestRun_WithinBatchDuplicate(t *testing.T) {
	emb := newFakeEmbedder()
	raw := rawOutput(t, item("Arithmetic", "What is 2+2?"), item("Arithmetic", "What is 2+2?"))
	mem := corpus.NewMemory("fake-embed", dim)

	p := newPipeline(t, staticGenerator(raw), emb, mem, DefaultConfig())
	res, err := p.Run(context.Background(), Params{Request: request(2)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Decisions[0].IsDuplicate || !res.Decisions[1].IsDuplicate {
		t.Fatalf("expected first kept and second duplicate, got %+v", res.Decisions)
	}
	if res.Decisions[1].Source != dedup.SourceBatch {
		t.Fatalf("expected batch source, got %s", res.Decisions[1].Source)
	}
	if mem.Len() != 1 {
		t.Fatalf("expected one append, got %d", mem.Len())
	}
}

func TestRun_DropsInvalidItemAndContinues(t *testing.T) {
	emb := newFakeEmbedder()
	raw := rawOutput(t,
		item("Arithmetic", "Q1?"),
		item("Arithmetic", "Q2?"),
		item("Arithmetic", ""),
		item("Arithmetic", "Q4?"),
		item("Arithmetic", "Q5?"),
	)
	p := newPipeline(t, staticGenerator(raw), emb, corpus.NewMemory("fake-embed", dim), DefaultConfig())
	res, err := p.Run(context.Background(), Params{Request: request(5)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Counts.Generated != 5 || res.Counts.Dropped != 1 || res.Counts.Accepted != 4 {
		t.Fatalf("unexpected counts %+v", res.Counts)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "item 2") {
		t.Fatalf("expected one warning for item 2, got %v", res.Warnings)
	}
}

func TestRun_EmbeddingFailureExcludesOnlyThatCandidate(t *testing.T) {
	emb := newFakeEmbedder()
	emb.failing["Q2?"] = true
	raw := rawOutput(t, item("Arithmetic", "Q1?"), item("Arithmetic", "Q2?"), item("Arithmetic", "Q3?"))
	mem := corpus.NewMemory("fake-embed", dim)

	p := newPipeline(t, staticGenerator(raw), emb, mem, DefaultConfig())
	res, err := p.Run(context.Background(), Params{Request: request(3)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Excluded) != 1 || res.Excluded[0].Index != 1 {
		t.Fatalf("expected candidate 1 excluded, got %+v", res.Excluded)
	}
	var embErr *embedding.EmbeddingError
	if !errors.As(res.Excluded[0].Err, &embErr) {
		t.Fatalf("expected *EmbeddingError, got %T", res.Excluded[0].Err)
	}
	if res.Counts.Accepted != 2 || res.Counts.Excluded != 1 || len(res.Decisions) != 2 {
		t.Fatalf("unexpected result %+v", res.Counts)
	}
	if res.Decisions[1].Candidate.Index != 2 {
		t.Fatalf("decision should point at candidate 2, got %d", res.Decisions[1].Candidate.Index)
	}
}

func TestRun_AllEmbeddingsFail(t *testing.T) {
	emb := newFakeEmbedder()
	emb.failing["Q1?"] = true
	p := newPipeline(t, staticGenerator(rawOutput(t, item("Arithmetic", "Q1?"))), emb, corpus.NewMemory("fake-embed", dim), DefaultConfig())

	_, err := p.Run(context.Background(), Params{Request: request(1)})
	requireRunError(t, err, StateParsed)
	if !errors.Is(err, ErrAllEmbeddingsFailed) {
		t.Fatalf("expected ErrAllEmbeddingsFailed, got %v", err)
	}
}

// --- failures ---

func TestRun_GenerationError(t *testing.T) {
	provider := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrRateLimit{Err: errors.New("429")}})
	gen := mcq.NewGenerator(provider, mcq.DefaultConfig())
	emb := newFakeEmbedder()

	p := newPipeline(t, gen, emb, corpus.NewMemory("fake-embed", dim), DefaultConfig())
	_, err := p.Run(context.Background(), Params{Request: request(1)})

	requireRunError(t, err, StatePromptBuilt)
	var genErr *mcq.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected *GenerationError in chain, got %v", err)
	}
	if emb.calls != 0 {
		t.Fatal("embedder must not run after a generation failure")
	}
}

func TestRun_MalformedResponse(t *testing.T) {
	p := newPipeline(t, staticGenerator("I cannot help with that."), newFakeEmbedder(), corpus.NewMemory("fake-embed", dim), DefaultConfig())
	_, err := p.Run(context.Background(), Params{Request: request(1)})

	requireRunError(t, err, StateGenerated)
	var malformed *mcq.MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected *MalformedResponseError, got %v", err)
	}
}

func TestRun_EmptyResult(t *testing.T) {
	raw := rawOutput(t, item("Arithmetic", ""))
	p := newPipeline(t, staticGenerator(raw), newFakeEmbedder(), corpus.NewMemory("fake-embed", dim), DefaultConfig())
	_, err := p.Run(context.Background(), Params{Request: request(1)})

	requireRunError(t, err, StateGenerated)
	var empty *mcq.EmptyResultError
	if !errors.As(err, &empty) {
		t.Fatalf("expected *EmptyResultError, got %v", err)
	}
}

func TestRun_CorpusReadPolicy(t *testing.T) {
	raw := rawOutput(t, item("Arithmetic", "Q1?"))

	t.Run("fail", func(t *testing.T) {
		mem := corpus.NewMemory("fake-embed", dim)
		mem.LoadErr = errors.New("db down")
		called := false
		gen := generatorFunc(func(context.Context, string) (string, error) {
			called = true
			return raw, nil
		})

		p := newPipeline(t, gen, newFakeEmbedder(), mem, DefaultConfig())
		_, err := p.Run(context.Background(), Params{Request: request(1)})
		requireRunError(t, err, StateIdle)
		var readErr *corpus.ReadError
		if !errors.As(err, &readErr) {
			t.Fatalf("expected *corpus.ReadError, got %v", err)
		}
		if called {
			t.Fatal("generator must not be called when the corpus cannot be read")
		}
	})

	t.Run("empty", func(t *testing.T) {
		mem := corpus.NewMemory("fake-embed", dim)
		mem.LoadErr = errors.New("db down")
		cfg := DefaultConfig()
		cfg.EmptyCorpusOnReadError = true

		p := newPipeline(t, staticGenerator(raw), newFakeEmbedder(), mem, cfg)
		res, err := p.Run(context.Background(), Params{Request: request(1)})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if res.Counts.Accepted != 1 {
			t.Fatalf("expected the candidate accepted, got %+v", res.Counts)
		}
		if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "corpus unavailable") {
			t.Fatalf("expected corpus warning, got %v", res.Warnings)
		}
	})
}

func TestRun_AppendFailure(t *testing.T) {
	// A corpus with a different dimension rejects the append.
	mem := corpus.NewMemory("fake-embed", dim+1)
	p := newPipeline(t, staticGenerator(rawOutput(t, item("Arithmetic", "Q1?"))), newFakeEmbedder(), mem, DefaultConfig())

	_, err := p.Run(context.Background(), Params{Request: request(1)})
	requireRunError(t, err, StateFiltered)
	if !errors.Is(err, corpus.ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}
}

// appendLimit accepts the first n appends and rejects the rest.
type appendLimit struct {
	*corpus.Memory
	n int
}

func (a *appendLimit) Append(ctx context.Context, v vector.Vector, questionID string) error {
	if a.n == 0 {
		return errors.New("disk full")
	}
	a.n--
	return a.Memory.Append(ctx, v, questionID)
}

func TestRun_PartialAppendKeepsEarlierEntries(t *testing.T) {
	mem := corpus.NewMemory("fake-embed", dim)
	c := &appendLimit{Memory: mem, n: 1}
	raw := rawOutput(t, item("Arithmetic", "Q1?"), item("Arithmetic", "Q2?"))
	p := newPipeline(t, staticGenerator(raw), newFakeEmbedder(), c, DefaultConfig())

	res, err := p.Run(context.Background(), Params{Request: request(2)})
	requireRunError(t, err, StateFiltered)
	if res != nil {
		t.Fatalf("expected no result, got %+v", res)
	}
	if mem.Len() != 1 {
		t.Fatalf("expected the first append to remain, corpus has %d entries", mem.Len())
	}
}

func TestRun_InvalidRequest(t *testing.T) {
	p := newPipeline(t, staticGenerator("[]"), newFakeEmbedder(), corpus.NewMemory("fake-embed", dim), DefaultConfig())
	_, err := p.Run(context.Background(), Params{Request: mcq.GenerationRequest{Difficulty: "Easy"}})
	requireRunError(t, err, StateIdle)
}

func TestRun_ThresholdOverride(t *testing.T) {
	emb := newFakeEmbedder()
	emb.vectors["Q1?"] = near(0, 0.9)
	raw := rawOutput(t, item("Arithmetic", "Q1?"))

	run := func(th *float64) *Result {
		mem := corpus.Seed("fake-embed", dim, []corpus.Entry{{QuestionID: "old", Vector: basis(0)}})
		p := newPipeline(t, staticGenerator(raw), emb, mem, DefaultConfig())
		res, err := p.Run(context.Background(), Params{Request: request(1), Threshold: th})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return res
	}

	if res := run(nil); res.Counts.Duplicates != 1 || res.Threshold != dedup.DefaultThreshold {
		t.Fatalf("default threshold: %+v", res.Counts)
	}
	strict := 0.95
	if res := run(&strict); res.Counts.Duplicates != 0 || res.Threshold != 0.95 {
		t.Fatalf("override 0.95: %+v", res.Counts)
	}

	bad := 1.5
	p := newPipeline(t, staticGenerator(raw), emb, corpus.NewMemory("fake-embed", dim), DefaultConfig())
	_, err := p.Run(context.Background(), Params{Request: request(1), Threshold: &bad})
	requireRunError(t, err, StateIdle)
}

// --- previous assessment ---

func TestRun_FetchesPreviousAssessment(t *testing.T) {
	var prompt string
	gen := generatorFunc(func(_ context.Context, p string) (string, error) {
		prompt = p
		return rawOutput(t, item("Arithmetic", "Q1?")), nil
	})

	p := newPipeline(t, gen, newFakeEmbedder(), corpus.NewMemory("fake-embed", dim), DefaultConfig(),
		WithFetcher(performance.Static(`{"averageScore": 41}`)))

	res, err := p.Run(context.Background(), Params{Request: request(1), CohortID: "bootcamp-1"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.UsedPreviousAssessment {
		t.Fatal("expected previous assessment to be used")
	}
	if !strings.Contains(prompt, `"averageScore": 41`) {
		t.Fatalf("prompt missing previous assessment:\n%s", prompt)
	}
}

func TestRun_NoCohortNoFetch(t *testing.T) {
	p := newPipeline(t, staticGenerator(rawOutput(t, item("Arithmetic", "Q1?"))), newFakeEmbedder(), corpus.NewMemory("fake-embed", dim), DefaultConfig(),
		WithFetcher(failingFetcher{err: errors.New("should not be called")}))

	res, err := p.Run(context.Background(), Params{Request: request(1)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.UsedPreviousAssessment {
		t.Fatal("no cohort should mean no prior data")
	}
}

func TestRun_FetchFailure(t *testing.T) {
	raw := rawOutput(t, item("Arithmetic", "Q1?"))
	fetcher := WithFetcher(failingFetcher{err: fmt.Errorf("status 503")})

	t.Run("fatal", func(t *testing.T) {
		p := newPipeline(t, staticGenerator(raw), newFakeEmbedder(), corpus.NewMemory("fake-embed", dim), DefaultConfig(), fetcher)
		_, err := p.Run(context.Background(), Params{Request: request(1), CohortID: "c"})
		requireRunError(t, err, StateIdle)
	})

	t.Run("optional", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.PerformanceOptional = true
		p := newPipeline(t, staticGenerator(raw), newFakeEmbedder(), corpus.NewMemory("fake-embed", dim), cfg, fetcher)
		res, err := p.Run(context.Background(), Params{Request: request(1), CohortID: "c"})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if res.UsedPreviousAssessment || len(res.Warnings) != 1 {
			t.Fatalf("expected a warning and no prior data, got %+v", res.Warnings)
		}
	})
}

func TestRun_CancelledDuringEmbedding(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := generatorFunc(func(context.Context, string) (string, error) {
		cancel()
		return rawOutput(t, item("Arithmetic", "Q1?")), nil
	})

	p := newPipeline(t, gen, newFakeEmbedder(), corpus.NewMemory("fake-embed", dim), DefaultConfig())
	_, err := p.Run(ctx, Params{Request: request(1)})
	requireRunError(t, err, StateParsed)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRun_EndToEndWithMockProvider(t *testing.T) {
	provider := llm.NewMockTextProvider(rawOutput(t,
		item("Arithmetic", "What is 2+2?"),
		item("Arithmetic", "What is 5+5?"),
	))
	gen := mcq.NewGenerator(provider, mcq.DefaultConfig())
	client := embedding.NewMockClient("mock-embedding", dim)
	emb := embedding.NewEmbedder(client, embedding.Config{Dimensions: dim, BatchSize: 8, Concurrency: 1}, nil)
	mem := corpus.NewMemory(emb.ModelID(), dim)

	p := newPipeline(t, gen, emb, mem, DefaultConfig())
	first, err := p.Run(context.Background(), Params{Request: request(2)})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Counts.Accepted != 2 {
		t.Fatalf("first run: expected 2 accepted, got %+v", first.Counts)
	}

	// The same questions again are all duplicates of the grown corpus.
	provider.AddResponse(llm.MockResponse{Content: json.RawMessage(rawOutput(t,
		item("Arithmetic", "What is 2+2?"),
		item("Arithmetic", "What is 5+5?"),
	))})
	second, err := p.Run(context.Background(), Params{Request: request(2)})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Counts.Accepted != 0 || second.Counts.Duplicates != 2 {
		t.Fatalf("second run: expected all duplicates, got %+v", second.Counts)
	}
	if first.RunID == second.RunID {
		t.Fatal("runs must get distinct IDs")
	}
}
