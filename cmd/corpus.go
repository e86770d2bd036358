package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/mcqgen/internal/corpus"
	"github.com/abhisek/mcqgen/internal/corpus/postgres"
	"github.com/abhisek/mcqgen/internal/embedding"
	"github.com/abhisek/mcqgen/internal/store"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Inspect and maintain the embedding corpus",
}

var corpusStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show corpus entries per embedding model",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cfg, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		w := cmd.OutOrStdout()

		if cfg.Corpus.Driver == "postgres" {
			pg, err := postgres.Open(ctx, cfg.Corpus.Postgres, cfg.Embedding.Model, cfg.Embedding.Dimensions)
			if err != nil {
				return fmt.Errorf("open postgres corpus: %w", err)
			}
			defer pg.Close()
			n, err := pg.Count(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s (postgres): %d entries\n", pg.Model(), n)
			return nil
		}

		stats, err := s.CorpusStats(ctx)
		if err != nil {
			return err
		}
		if len(stats) == 0 {
			fmt.Fprintln(w, "Corpus is empty.")
			return nil
		}

		fmt.Fprintf(w, "%-32s  %6s  %8s  %6s\n", "Model", "Dims", "Entries", "Empty")
		fmt.Fprintln(w, strings.Repeat("─", 58))
		for _, st := range stats {
			fmt.Fprintf(w, "%-32s  %6d  %8d  %6d\n", truncate(st.Model, 32), st.Dimensions, st.Entries, st.Empty)
		}
		return nil
	},
}

var corpusBackfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Embed stored questions that have no corpus entry for the configured model",
	Long: "Backfill embeds active stored questions missing from the corpus of the current\n" +
		"embedding model, e.g. after switching models. Questions that fail to embed are\n" +
		"logged and skipped.",
	RunE: func(cmd *cobra.Command, args []string) error {
		batch, _ := cmd.Flags().GetInt("batch")
		limit, _ := cmd.Flags().GetInt("limit")
		if batch <= 0 {
			return fmt.Errorf("--batch must be positive")
		}

		s, cfg, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if cfg.Corpus.Driver != "sqlite" {
			return fmt.Errorf("backfill needs the sqlite corpus driver, got %q", cfg.Corpus.Driver)
		}
		if err := cfg.Embedding.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		logger := newLogger(cmd, cfg)
		ctx := cmd.Context()

		embedder, err := newEmbedder(ctx, cfg, logger)
		if err != nil {
			return err
		}
		c := s.Corpus(embedder.ModelID(), embedder.Dimensions())

		missing, err := s.QuestionSets().MissingEmbeddings(ctx, embedder.ModelID(), limit)
		if err != nil {
			return err
		}

		added, failed, err := backfill(ctx, embedder, c, missing, batch, logger)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Backfilled %d of %d questions for %s (%d failed)\n",
			added, len(missing), embedder.ModelID(), failed)
		return nil
	},
}

// backfill embeds missing in chunks of batch and appends each vector to c.
// Questions that fail to embed are logged and counted, never appended.
func backfill(ctx context.Context, embedder *embedding.Embedder, c corpus.Corpus, missing []store.QuestionRecord, batch int, logger *slog.Logger) (added, failed int, err error) {
	for start := 0; start < len(missing); start += batch {
		chunk := missing[start:min(start+batch, len(missing))]
		texts := make([]string, len(chunk))
		for i, q := range chunk {
			texts[i] = q.Question
		}
		results, err := embedder.Embed(ctx, texts)
		if err != nil {
			return added, failed, err
		}
		for i, r := range results {
			if !r.OK() {
				failed++
				logger.Warn("skipping question", "question_id", chunk[i].ID, "error", r.Err)
				continue
			}
			if err := c.Append(ctx, r.Vector, chunk[i].ID); err != nil {
				return added, failed, fmt.Errorf("append %s: %w", chunk[i].ID, err)
			}
			added++
		}
		logger.Debug("backfill batch done", "done", start+len(chunk), "total", len(missing))
	}
	return added, failed, nil
}

func init() {
	corpusBackfillCmd.Flags().Int("batch", 64, "Questions per embedding call")
	corpusBackfillCmd.Flags().IntP("limit", "n", 0, "Maximum questions to backfill (0 = all)")

	corpusCmd.AddCommand(corpusStatsCmd)
	corpusCmd.AddCommand(corpusBackfillCmd)
}
