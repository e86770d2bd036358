package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/mcqgen/internal/config"
	"github.com/abhisek/mcqgen/internal/corpus"
	"github.com/abhisek/mcqgen/internal/corpus/postgres"
	"github.com/abhisek/mcqgen/internal/embedding"
	"github.com/abhisek/mcqgen/internal/llm"
	"github.com/abhisek/mcqgen/internal/mcq"
	"github.com/abhisek/mcqgen/internal/performance"
	"github.com/abhisek/mcqgen/internal/pipeline"
	"github.com/abhisek/mcqgen/internal/store"
	"github.com/abhisek/mcqgen/internal/ui/theme"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a set of unique multiple-choice questions",
	Example: `  mcqgen generate --difficulty medium --topic "Go channels=3" --topic "Go generics=2" --audience "backend engineers"
  mcqgen generate -d hard -t "SQL joins=5" --cohort spring-2026 --output json`,
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringP("difficulty", "d", "", "Difficulty level (e.g. easy, medium, hard)")
	f.StringArrayP("topic", "t", nil, `Topic and count as "name=count" (repeatable)`)
	f.StringP("audience", "a", "", "Target audience")
	f.String("cohort", "", "Cohort ID for fetching previous assessment performance")
	f.String("previous", "", "Previous assessment summary as JSON (skips the fetch)")
	f.Float64("threshold", 0, "Similarity threshold in (0, 1] (default from config)")
	f.StringP("output", "o", "table", "Output format: table or json")
	f.Bool("no-save", false, "Do not store the accepted set")
	f.Bool("dry-run", false, "Run without persisting anything")
	f.Bool("structured", false, "Request structured output from the provider")

	_ = generateCmd.MarkFlagRequired("difficulty")
	_ = generateCmd.MarkFlagRequired("topic")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	output, _ := flags.GetString("output")
	if output != "table" && output != "json" {
		return fmt.Errorf("unknown output format %q (want table or json)", output)
	}

	topicSpecs, _ := flags.GetStringArray("topic")
	topics, err := parseTopics(topicSpecs)
	if err != nil {
		return err
	}
	difficulty, _ := flags.GetString("difficulty")
	audience, _ := flags.GetString("audience")
	cohort, _ := flags.GetString("cohort")
	previous, _ := flags.GetString("previous")
	noSave, _ := flags.GetBool("no-save")
	dryRun, _ := flags.GetBool("dry-run")

	req := mcq.GenerationRequest{
		Difficulty:         difficulty,
		Topics:             topics,
		Audience:           audience,
		PreviousAssessment: json.RawMessage(previous),
	}
	if previous != "" && !json.Valid([]byte(previous)) {
		return fmt.Errorf("--previous is not valid JSON")
	}

	s, cfg, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if structured, _ := flags.GetBool("structured"); structured {
		cfg.Generation.StructuredOutput = true
	}
	var threshold *float64
	if flags.Changed("threshold") {
		t, _ := flags.GetFloat64("threshold")
		threshold = &t
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger(cmd, cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Dry runs leave no trace, LLM events included.
	var events store.EventRepo
	if !dryRun {
		events = s.EventRepo()
	}
	provider, err := llm.NewProvider(ctx, cfg.LLM, events, logger)
	if err != nil {
		return err
	}
	gen := mcq.NewGenerator(provider, cfg.Generation)

	embedder, err := newEmbedder(ctx, cfg, logger)
	if err != nil {
		return err
	}

	c, closeCorpus, err := openCorpus(ctx, cfg, s, embedder)
	if err != nil {
		return err
	}
	defer closeCorpus()
	if dryRun {
		c = corpus.NewOverlay(c, embedder.ModelID(), embedder.Dimensions())
	}

	opts := []pipeline.Option{pipeline.WithLogger(logger)}
	if cfg.Performance.Enabled() {
		fetcher, err := performance.NewHTTPFetcher(cfg.Performance, logger)
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithFetcher(fetcher))
	}

	p, err := pipeline.New(gen, embedder, c, pipelineConfig(cfg), opts...)
	if err != nil {
		return err
	}

	res, err := p.Run(ctx, pipeline.Params{
		Request:   req,
		CohortID:  cohort,
		Threshold: threshold,
	})
	if err != nil {
		var runErr *pipeline.RunError
		if errors.As(err, &runErr) {
			logger.Debug("run failed", "stage", runErr.Stage)
		}
		return err
	}

	var setID string
	if !noSave && !dryRun && len(res.Accepted) > 0 {
		set := newQuestionSet(res, req, cohort, gen.ModelID())
		if err := s.QuestionSets().Save(ctx, set, toRecords(res.Accepted)); err != nil {
			return fmt.Errorf("save question set: %w", err)
		}
		setID = set.ID
		logger.Info("question set saved", "set_id", setID, "questions", len(res.Accepted))
	}

	w := cmd.OutOrStdout()
	if output == "json" {
		return writeJSON(w, setID, res)
	}
	renderResult(w, setID, res, dryRun)
	return nil
}

// parseTopics turns "name=count" flags into topic counts, in flag order.
// The count is taken after the last "=" so names may contain one.
func parseTopics(specs []string) ([]mcq.TopicCount, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("at least one --topic is required")
	}
	topics := make([]mcq.TopicCount, 0, len(specs))
	for _, spec := range specs {
		i := strings.LastIndex(spec, "=")
		if i < 0 {
			return nil, fmt.Errorf("invalid topic %q: want name=count", spec)
		}
		name := strings.TrimSpace(spec[:i])
		count, err := strconv.Atoi(strings.TrimSpace(spec[i+1:]))
		if err != nil {
			return nil, fmt.Errorf("invalid topic %q: count: %w", spec, err)
		}
		topics = append(topics, mcq.TopicCount{Name: name, Count: count})
	}
	return topics, nil
}

func newEmbedder(ctx context.Context, cfg config.Config, logger *slog.Logger) (*embedding.Embedder, error) {
	client, err := embedding.NewClient(ctx, cfg.Embedding)
	if err != nil {
		return nil, err
	}
	return embedding.NewEmbedder(client, cfg.Embedding, logger), nil
}

// openCorpus opens the configured corpus for the embedder's model. The
// returned func releases it.
func openCorpus(ctx context.Context, cfg config.Config, s *store.Store, embedder *embedding.Embedder) (corpus.Corpus, func(), error) {
	switch cfg.Corpus.Driver {
	case "postgres":
		pg, err := postgres.Open(ctx, cfg.Corpus.Postgres, embedder.ModelID(), embedder.Dimensions())
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres corpus: %w", err)
		}
		return pg, func() { _ = pg.Close() }, nil
	default:
		return s.Corpus(embedder.ModelID(), embedder.Dimensions()), func() {}, nil
	}
}

func pipelineConfig(cfg config.Config) pipeline.Config {
	return pipeline.Config{
		Dedup:                  cfg.Dedup,
		EmptyCorpusOnReadError: cfg.Corpus.OnReadError == config.OnReadErrorEmpty,
		PerformanceOptional:    cfg.Performance.Optional,
	}
}

func newQuestionSet(res *pipeline.Result, req mcq.GenerationRequest, cohort, model string) *store.QuestionSet {
	topics := make([]store.SetTopic, len(req.Topics))
	for i, t := range req.Topics {
		topics[i] = store.SetTopic{Name: t.Name, Count: t.Count}
	}
	return &store.QuestionSet{
		ID:             res.RunID,
		CohortID:       cohort,
		Difficulty:     req.Difficulty,
		Topics:         topics,
		Audience:       req.Audience,
		Model:          model,
		EmbeddingModel: res.EmbeddingModel,
		Threshold:      res.Threshold,
		GeneratedAt:    time.Now(),
		AcceptedCount:  res.Counts.Accepted,
		DuplicateCount: res.Counts.Duplicates,
		ExcludedCount:  res.Counts.Excluded,
		DroppedCount:   res.Counts.Dropped,
	}
}

// toRecords converts accepted questions to store rows. SetID and Position
// are filled in by Save.
func toRecords(qs []mcq.Question) []store.QuestionRecord {
	out := make([]store.QuestionRecord, len(qs))
	for i, q := range qs {
		out[i] = store.QuestionRecord{
			ID:         q.ID,
			Topic:      q.Topic,
			Difficulty: q.Difficulty,
			Question:   q.Question,
			Options:    q.Options,
			Answer:     q.Answer,
			Active:     true,
		}
	}
	return out
}

type generateOutput struct {
	SetID     string          `json:"set_id,omitempty"`
	RunID     string          `json:"run_id"`
	Questions []mcq.Question  `json:"questions"`
	Counts    pipeline.Counts `json:"counts"`
	Threshold float64         `json:"threshold"`
	Warnings  []string        `json:"warnings,omitempty"`
}

func writeJSON(w io.Writer, setID string, res *pipeline.Result) error {
	out := generateOutput{
		SetID:     setID,
		RunID:     res.RunID,
		Questions: res.Accepted,
		Counts:    res.Counts,
		Threshold: res.Threshold,
		Warnings:  res.Warnings,
	}
	if out.Questions == nil {
		out.Questions = []mcq.Question{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func renderResult(w io.Writer, setID string, res *pipeline.Result, dryRun bool) {
	for i, q := range res.Accepted {
		var b strings.Builder
		fmt.Fprintf(&b, "%s %s\n", theme.Title.Render(fmt.Sprintf("Q%d.", i+1)), q.Question)
		for j, opt := range q.Options {
			line := fmt.Sprintf("  %c) %s", 'A'+j, opt)
			if opt == q.Answer {
				line = theme.Correct.Render(line)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString(theme.Tag.Render(q.Topic + " · " + q.Difficulty))
		fmt.Fprintln(w, theme.Card.Render(b.String()))
	}

	for _, d := range res.Duplicates() {
		fmt.Fprintln(w, theme.Dim.Render("duplicate: "+truncate(d.Question, 72)))
	}
	for _, ex := range res.Excluded {
		fmt.Fprintln(w, theme.Failed.Render(fmt.Sprintf("excluded: %s (%v)", truncate(ex.Question.Question, 60), ex.Err)))
	}
	for _, warn := range res.Warnings {
		fmt.Fprintln(w, theme.Warning.Render("warning: "+warn))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s | %s %s\n",
		theme.Label.Render("Unique:"), theme.Accepted.Render(strconv.Itoa(res.Counts.Accepted)),
		"Duplicates removed:", theme.Duplicate.Render(strconv.Itoa(res.Counts.Duplicates)))
	fmt.Fprintf(w, "%s requested %d, generated %d, dropped %d, excluded %d (threshold %.2f, corpus %d)\n",
		theme.Label.Render("Counts:"),
		res.Counts.Requested, res.Counts.Generated, res.Counts.Dropped, res.Counts.Excluded,
		res.Threshold, res.CorpusSize)
	switch {
	case dryRun:
		fmt.Fprintln(w, theme.Dim.Render("dry run: nothing was stored"))
	case setID != "":
		fmt.Fprintf(w, "%s %s\n", theme.Label.Render("Set:"), setID)
	}
}
