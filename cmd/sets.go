package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/mcqgen/internal/store"
	"github.com/abhisek/mcqgen/internal/ui/theme"
)

var setsCmd = &cobra.Command{
	Use:   "sets",
	Short: "Browse stored question sets",
}

var setsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List question sets, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		cohort, _ := cmd.Flags().GetString("cohort")
		limit, _ := cmd.Flags().GetInt("limit")

		s, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		sets, err := s.QuestionSets().List(cmd.Context(), cohort, limit)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if len(sets) == 0 {
			fmt.Fprintln(w, "No question sets found.")
			return nil
		}

		fmt.Fprintf(w, "%-36s  %-19s  %-14s  %-10s  %5s  %5s\n",
			"ID", "Generated", "Cohort", "Difficulty", "Qs", "Dups")
		fmt.Fprintln(w, strings.Repeat("─", 100))
		for _, set := range sets {
			fmt.Fprintf(w, "%-36s  %-19s  %-14s  %-10s  %5d  %5d\n",
				set.ID,
				set.GeneratedAt.Local().Format("2006-01-02 15:04:05"),
				truncate(set.CohortID, 14),
				truncate(set.Difficulty, 10),
				set.AcceptedCount,
				set.DuplicateCount,
			)
		}
		return nil
	},
}

var setsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a question set and its questions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		set, questions, err := s.QuestionSets().Get(cmd.Context(), args[0])
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("question set %s not found", args[0])
		}
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		topics := make([]string, len(set.Topics))
		for i, t := range set.Topics {
			topics[i] = fmt.Sprintf("%s=%d", t.Name, t.Count)
		}

		fmt.Fprintf(w, "%s %s\n", theme.Label.Render("ID:"), set.ID)
		fmt.Fprintf(w, "%s %s\n", theme.Label.Render("Generated:"), set.GeneratedAt.Local().Format("2006-01-02 15:04:05"))
		if set.CohortID != "" {
			fmt.Fprintf(w, "%s %s\n", theme.Label.Render("Cohort:"), set.CohortID)
		}
		fmt.Fprintf(w, "%s %s\n", theme.Label.Render("Difficulty:"), set.Difficulty)
		fmt.Fprintf(w, "%s %s\n", theme.Label.Render("Topics:"), strings.Join(topics, ", "))
		if set.Audience != "" {
			fmt.Fprintf(w, "%s %s\n", theme.Label.Render("Audience:"), set.Audience)
		}
		fmt.Fprintf(w, "%s %s / %s (threshold %.2f)\n", theme.Label.Render("Models:"), set.Model, set.EmbeddingModel, set.Threshold)
		fmt.Fprintf(w, "%s %d accepted, %d duplicates, %d excluded, %d dropped\n",
			theme.Label.Render("Counts:"), set.AcceptedCount, set.DuplicateCount, set.ExcludedCount, set.DroppedCount)
		fmt.Fprintln(w)

		for _, q := range questions {
			fmt.Fprintf(w, "%s %s\n", theme.Title.Render(fmt.Sprintf("Q%d.", q.Position+1)), q.Question)
			for j, opt := range q.Options {
				line := fmt.Sprintf("  %c) %s", 'A'+j, opt)
				if opt == q.Answer {
					line = theme.Correct.Render(line)
				}
				fmt.Fprintln(w, line)
			}
			fmt.Fprintln(w, theme.Dim.Render("  "+q.Topic+" · "+q.ID))
		}
		return nil
	},
}

func init() {
	setsListCmd.Flags().String("cohort", "", "Only sets for this cohort")
	setsListCmd.Flags().IntP("limit", "n", 20, "Number of sets to show")

	setsCmd.AddCommand(setsListCmd)
	setsCmd.AddCommand(setsShowCmd)
}
