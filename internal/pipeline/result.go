package pipeline

import (
	"github.com/abhisek/mcqgen/internal/dedup"
	"github.com/abhisek/mcqgen/internal/mcq"
)

// Counts summarize a run. Generated = Dropped + Excluded + Duplicates +
// Accepted.
type Counts struct {
	Requested  int `json:"requested"`
	Generated  int `json:"generated"`
	Dropped    int `json:"dropped"`
	Excluded   int `json:"excluded"`
	Duplicates int `json:"duplicates"`
	Accepted   int `json:"accepted"`
}

// Exclusion is a parsed question that could not be embedded.
type Exclusion struct {
	Index    int
	Question mcq.Question
	Err      error
}

// Result is the outcome of a successful run.
type Result struct {
	RunID string
	State State

	Prompt      string
	RawResponse string

	// Candidates are the parsed questions in generation order; Decisions
	// index into them via Candidate.Index.
	Candidates []mcq.Question
	Decisions  []dedup.Decision
	Excluded   []Exclusion

	// Accepted are the unique questions, with IDs, in generation order.
	Accepted []mcq.Question

	Warnings []string
	Counts   Counts

	Threshold              float64
	EmbeddingModel         string
	CorpusSize             int
	UsedPreviousAssessment bool
}

// Duplicates returns the questions filtered out as duplicates.
func (r *Result) Duplicates() []mcq.Question {
	var out []mcq.Question
	for _, d := range r.Decisions {
		if d.IsDuplicate {
			out = append(out, r.Candidates[d.Candidate.Index])
		}
	}
	return out
}
