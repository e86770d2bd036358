// Package pipeline runs one generation: prompt, model call, parse, embed,
// filter against the corpus, and append the accepted questions.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/abhisek/mcqgen/internal/corpus"
	"github.com/abhisek/mcqgen/internal/dedup"
	"github.com/abhisek/mcqgen/internal/embedding"
	"github.com/abhisek/mcqgen/internal/llm"
	"github.com/abhisek/mcqgen/internal/mcq"
	"github.com/abhisek/mcqgen/internal/performance"
	"github.com/abhisek/mcqgen/internal/vector"
)

// Embedder turns question texts into vectors. *embedding.Embedder is the
// production implementation.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([]embedding.Result, error)
	ModelID() string
}

// Config holds the run policies.
type Config struct {
	Dedup dedup.Config

	// EmptyCorpusOnReadError continues with an empty corpus, treating every
	// candidate as unique, when the corpus cannot be read.
	EmptyCorpusOnReadError bool

	// PerformanceOptional continues without prior data when the fetch fails.
	PerformanceOptional bool
}

func DefaultConfig() Config {
	return Config{Dedup: dedup.DefaultConfig()}
}

// Pipeline wires the collaborators of a run. It is safe to Run concurrently
// only if the collaborators are.
type Pipeline struct {
	generator mcq.Generator
	parser    *mcq.Parser
	embedder  Embedder
	corpus    corpus.Corpus
	fetcher   performance.Fetcher
	cfg       Config
	logger    *slog.Logger
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithFetcher sets the prior-performance source.
func WithFetcher(f performance.Fetcher) Option {
	return func(p *Pipeline) { p.fetcher = f }
}

// WithParser replaces the default parser.
func WithParser(parser *mcq.Parser) Option {
	return func(p *Pipeline) { p.parser = parser }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// New validates cfg and builds a Pipeline.
func New(gen mcq.Generator, emb Embedder, c corpus.Corpus, cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Dedup.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{
		generator: gen,
		parser:    mcq.NewParser(nil),
		embedder:  emb,
		corpus:    c,
		cfg:       cfg,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Params are the inputs of one run.
type Params struct {
	Request mcq.GenerationRequest

	// CohortID keys the prior-performance fetch. Ignored when the request
	// already carries a previous assessment.
	CohortID string

	// Threshold overrides the configured similarity threshold when non-nil.
	Threshold *float64
}

// Run executes one generation. On failure the error is a *RunError and no
// result is returned.
func (p *Pipeline) Run(ctx context.Context, params Params) (*Result, error) {
	r := &run{
		p:      p,
		result: &Result{RunID: uuid.NewString(), State: StateIdle, EmbeddingModel: p.embedder.ModelID()},
	}
	r.logger = p.logger.With("run_id", r.result.RunID)
	ctx = llm.WithRunID(ctx, r.result.RunID)

	if err := r.execute(ctx, params); err != nil {
		r.logger.Error("run failed", "stage", r.result.State, "error", err)
		r.result.State = StateFailed
		return nil, err
	}
	return r.result, nil
}

type run struct {
	p      *Pipeline
	result *Result
	logger *slog.Logger
}

func (r *run) fail(err error) error {
	return &RunError{Stage: r.result.State, Err: err}
}

func (r *run) advance(s State) {
	r.logger.Debug("pipeline state", "from", r.result.State, "to", s)
	r.result.State = s
}

func (r *run) execute(ctx context.Context, params Params) error {
	p, res := r.p, r.result

	filterCfg := p.cfg.Dedup
	if params.Threshold != nil {
		filterCfg.Threshold = *params.Threshold
	}
	filter, err := dedup.New(filterCfg)
	if err != nil {
		return r.fail(err)
	}
	res.Threshold = filter.Threshold()

	req := params.Request
	if err := req.Validate(); err != nil {
		return r.fail(err)
	}
	if err := r.attachPerformance(ctx, &req, params.CohortID); err != nil {
		return r.fail(err)
	}
	res.UsedPreviousAssessment = req.HasPreviousAssessment()

	snapshot, err := r.loadCorpus(ctx)
	if err != nil {
		return r.fail(err)
	}
	res.CorpusSize = len(snapshot)

	// Idle -> PromptBuilt
	res.Prompt = mcq.BuildPrompt(req)
	r.advance(StatePromptBuilt)

	// PromptBuilt -> Generated
	raw, err := p.generator.Generate(ctx, res.Prompt)
	if err != nil {
		return r.fail(err)
	}
	res.RawResponse = raw
	r.advance(StateGenerated)

	// Generated -> Parsed
	parsed, err := p.parser.Parse(raw)
	if err != nil {
		return r.fail(err)
	}
	res.Warnings = append(res.Warnings, parsed.Warnings...)
	res.Counts.Requested = req.TotalRequested()
	res.Counts.Generated = parsed.Total
	res.Counts.Dropped = parsed.Dropped()
	r.advance(StateParsed)

	// Parsed -> Embedded
	candidates, vectors, err := r.embed(ctx, parsed.Questions)
	if err != nil {
		return r.fail(err)
	}
	r.advance(StateEmbedded)

	// Embedded -> Filtered
	res.Decisions = filter.Filter(candidates, snapshot)
	res.Counts.Duplicates = dedup.CountDuplicates(res.Decisions)
	r.advance(StateFiltered)

	// Filtered -> Done
	// A failed append leaves the earlier appends in the corpus even though the
	// run returns no questions.
	for _, c := range dedup.Unique(res.Decisions) {
		q := parsed.Questions[c.Index]
		q.ID = uuid.NewString()
		if err := p.corpus.Append(ctx, vectors[c.Index], q.ID); err != nil {
			return r.fail(fmt.Errorf("appending accepted question: %w", err))
		}
		res.Accepted = append(res.Accepted, q)
	}
	res.Candidates = parsed.Questions
	res.Counts.Accepted = len(res.Accepted)
	r.advance(StateDone)

	r.logger.Info("run complete",
		"accepted", res.Counts.Accepted,
		"duplicates", res.Counts.Duplicates,
		"excluded", res.Counts.Excluded,
		"dropped", res.Counts.Dropped,
	)
	return nil
}

func (r *run) attachPerformance(ctx context.Context, req *mcq.GenerationRequest, cohortID string) error {
	if req.HasPreviousAssessment() || cohortID == "" || r.p.fetcher == nil {
		return nil
	}
	data, err := r.p.fetcher.Fetch(ctx, cohortID)
	if err != nil {
		if r.p.cfg.PerformanceOptional && ctx.Err() == nil {
			r.warn(fmt.Sprintf("previous assessment unavailable for %s: %v", cohortID, err))
			return nil
		}
		return fmt.Errorf("fetching previous assessment: %w", err)
	}
	req.PreviousAssessment = data
	return nil
}

func (r *run) loadCorpus(ctx context.Context) ([]vector.Vector, error) {
	entries, err := r.p.corpus.LoadAll(ctx)
	if err != nil {
		if r.p.cfg.EmptyCorpusOnReadError && ctx.Err() == nil {
			r.warn(fmt.Sprintf("corpus unavailable, treating all candidates as unique: %v", err))
			return nil, nil
		}
		return nil, err
	}
	return corpus.Vectors(entries), nil
}

// embed embeds question texts and returns filter candidates for the ones
// that succeeded, plus vectors indexed like questions.
func (r *run) embed(ctx context.Context, questions []mcq.Question) ([]dedup.Candidate, []vector.Vector, error) {
	texts := make([]string, len(questions))
	for i, q := range questions {
		texts[i] = q.Question
	}

	results, err := r.p.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, nil, err
	}
	if len(results) != len(questions) {
		return nil, nil, fmt.Errorf("embedder returned %d results for %d questions", len(results), len(questions))
	}

	vectors := make([]vector.Vector, len(questions))
	var candidates []dedup.Candidate
	for i, res := range results {
		if res.Err != nil {
			r.result.Excluded = append(r.result.Excluded, Exclusion{Index: i, Question: questions[i], Err: res.Err})
			r.logger.Warn("candidate excluded", "index", i, "error", res.Err)
			continue
		}
		vectors[i] = res.Vector
		candidates = append(candidates, dedup.Candidate{Index: i, Vector: res.Vector})
	}
	r.result.Counts.Excluded = len(r.result.Excluded)

	if len(candidates) == 0 {
		return nil, nil, ErrAllEmbeddingsFailed
	}
	return candidates, vectors, nil
}

func (r *run) warn(msg string) {
	r.logger.Warn(msg)
	r.result.Warnings = append(r.result.Warnings, msg)
}
