// Package dedup decides which generated questions are near-duplicates of
// questions already issued, or of each other.
package dedup

import (
	"fmt"

	"github.com/abhisek/mcqgen/internal/vector"
)

// DefaultThreshold is the cosine similarity at or above which two questions
// count as the same question.
const DefaultThreshold = 0.86

// Source says what a duplicate matched against.
type Source string

const (
	SourceNone   Source = "none"
	SourceCorpus Source = "corpus"
	SourceBatch  Source = "batch"
)

// Candidate is one embedded question awaiting a decision. Index is its
// position in the generated batch.
type Candidate struct {
	Index  int
	Vector vector.Vector
}

// Decision is the verdict for one candidate. For duplicates,
// MatchedSimilarity and MatchIndex describe the first match found: an index
// into the corpus for SourceCorpus, or the Candidate.Index of an earlier
// accepted candidate for SourceBatch. MatchIndex is -1 for unique
// candidates.
type Decision struct {
	Candidate         Candidate
	IsDuplicate       bool
	MatchedSimilarity *float64
	Source            Source
	MatchIndex        int
}

// Config controls a Filter.
type Config struct {
	Threshold float64 `mapstructure:"threshold"`

	// WithinBatch also compares each candidate with earlier accepted
	// candidates of the same batch.
	WithinBatch bool `mapstructure:"within_batch"`
}

func DefaultConfig() Config {
	return Config{Threshold: DefaultThreshold, WithinBatch: true}
}

// ValidateThreshold reports whether t is in (0, 1].
func ValidateThreshold(t float64) error {
	if !(t > 0 && t <= 1) {
		return fmt.Errorf("similarity threshold must be in (0, 1], got %v", t)
	}
	return nil
}

func (c Config) Validate() error {
	return ValidateThreshold(c.Threshold)
}

// Filter is a configured similarity filter. It holds no state between calls.
type Filter struct {
	cfg Config
}

func New(cfg Config) (*Filter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Filter{cfg: cfg}, nil
}

// Threshold returns the configured threshold.
func (f *Filter) Threshold() float64 { return f.cfg.Threshold }

// Filter returns one decision per candidate, in candidate order. The corpus
// is a read-only snapshot.
func (f *Filter) Filter(candidates []Candidate, corpus []vector.Vector) []Decision {
	decisions := make([]Decision, 0, len(candidates))
	var accepted []Candidate

	for _, c := range candidates {
		d := Decision{Candidate: c, Source: SourceNone, MatchIndex: -1}

		if !c.Vector.IsZero() {
			if i, sim, ok := f.firstMatch(c.Vector, corpus); ok {
				d.IsDuplicate, d.Source, d.MatchIndex = true, SourceCorpus, i
				d.MatchedSimilarity = &sim
			} else if f.cfg.WithinBatch {
				if i, sim, ok := f.firstAccepted(c.Vector, accepted); ok {
					d.IsDuplicate, d.Source, d.MatchIndex = true, SourceBatch, i
					d.MatchedSimilarity = &sim
				}
			}
		}

		if !d.IsDuplicate {
			accepted = append(accepted, c)
		}
		decisions = append(decisions, d)
	}
	return decisions
}

func (f *Filter) firstMatch(v vector.Vector, corpus []vector.Vector) (int, float64, bool) {
	for i, e := range corpus {
		if e.IsZero() {
			continue
		}
		if sim := vector.Cosine(v, e); f.matches(sim) {
			return i, sim, true
		}
	}
	return -1, 0, false
}

func (f *Filter) firstAccepted(v vector.Vector, accepted []Candidate) (int, float64, bool) {
	for _, a := range accepted {
		if a.Vector.IsZero() {
			continue
		}
		if sim := vector.Cosine(v, a.Vector); f.matches(sim) {
			return a.Index, sim, true
		}
	}
	return -1, 0, false
}

func (f *Filter) matches(sim float64) bool {
	return sim >= f.cfg.Threshold
}

// Apply is a one-shot Filter with within-batch comparison enabled. An
// out-of-range threshold is an error.
func Apply(candidates []Candidate, corpus []vector.Vector, threshold float64) ([]Decision, error) {
	f, err := New(Config{Threshold: threshold, WithinBatch: true})
	if err != nil {
		return nil, err
	}
	return f.Filter(candidates, corpus), nil
}

// Unique returns the candidates judged unique, in order.
func Unique(decisions []Decision) []Candidate {
	var out []Candidate
	for _, d := range decisions {
		if !d.IsDuplicate {
			out = append(out, d.Candidate)
		}
	}
	return out
}

// CountDuplicates returns how many decisions are duplicates.
func CountDuplicates(decisions []Decision) int {
	n := 0
	for _, d := range decisions {
		if d.IsDuplicate {
			n++
		}
	}
	return n
}
