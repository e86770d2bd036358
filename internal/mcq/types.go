package mcq

import (
	"encoding/json"
	"fmt"
	"strings"
)

// OptionCount is the number of options every question carries.
const OptionCount = 4

// Question is a generated multiple-choice question.
type Question struct {
	// ID is assigned once the question is accepted. Empty for candidates.
	ID string `json:"id,omitempty"`

	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`

	// Question is the prompt shown to the learner.
	Question string `json:"question"`

	// Options holds exactly OptionCount answer choices, in presentation order.
	Options []string `json:"options"`

	// Answer is the full text of the correct option.
	Answer string `json:"answer"`
}

// TopicCount is one line of the generation request: how many questions to
// produce for a topic.
type TopicCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// GenerationRequest holds everything the prompt is built from.
type GenerationRequest struct {
	Difficulty string

	// Topics are rendered in slice order.
	Topics []TopicCount

	Audience string

	// PreviousAssessment is an arbitrary performance summary for the cohort.
	// Nil, JSON null, and empty objects/arrays/strings are treated as absent.
	PreviousAssessment json.RawMessage
}

// TotalRequested returns the sum of all topic counts.
func (r GenerationRequest) TotalRequested() int {
	n := 0
	for _, t := range r.Topics {
		n += t.Count
	}
	return n
}

// Validate checks that the request can be turned into a prompt.
func (r GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Difficulty) == "" {
		return fmt.Errorf("difficulty is required")
	}
	if len(r.Topics) == 0 {
		return fmt.Errorf("at least one topic is required")
	}
	seen := make(map[string]bool, len(r.Topics))
	for _, t := range r.Topics {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			return fmt.Errorf("topic name cannot be empty")
		}
		if t.Count <= 0 {
			return fmt.Errorf("topic %q: count must be positive (got %d)", name, t.Count)
		}
		key := strings.ToLower(name)
		if seen[key] {
			return fmt.Errorf("topic %q listed more than once", name)
		}
		seen[key] = true
	}
	return nil
}

// HasPreviousAssessment reports whether the request carries a non-empty
// performance summary.
func (r GenerationRequest) HasPreviousAssessment() bool {
	raw := strings.TrimSpace(string(r.PreviousAssessment))
	switch raw {
	case "", "null", "{}", "[]", `""`:
		return false
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		// Not JSON; still renderable as text.
		return true
	}
	switch x := v.(type) {
	case nil:
		return false
	case map[string]any:
		return len(x) > 0
	case []any:
		return len(x) > 0
	case string:
		return strings.TrimSpace(x) != ""
	}
	return true
}
