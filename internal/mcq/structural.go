package mcq

import (
	"fmt"
	"strings"
)

// StructuralValidator checks that required fields are present and that the
// question has exactly OptionCount non-empty options.
type StructuralValidator struct{}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(q *Question) *ValidationError {
	fail := func(msg string) *ValidationError {
		return &ValidationError{Validator: v.Name(), Message: msg}
	}

	if strings.TrimSpace(q.Question) == "" {
		return fail("question is empty")
	}
	if strings.TrimSpace(q.Topic) == "" {
		return fail("topic is empty")
	}
	if strings.TrimSpace(q.Difficulty) == "" {
		return fail("difficulty is empty")
	}
	if strings.TrimSpace(q.Answer) == "" {
		return fail("answer is empty")
	}
	if len(q.Options) != OptionCount {
		return fail(fmt.Sprintf("expected %d options, got %d", OptionCount, len(q.Options)))
	}

	seen := make(map[string]bool, len(q.Options))
	for i, opt := range q.Options {
		key := strings.ToLower(strings.TrimSpace(opt))
		if key == "" {
			return fail(fmt.Sprintf("option %d is empty", i+1))
		}
		if seen[key] {
			return fail(fmt.Sprintf("option %q appears more than once", opt))
		}
		seen[key] = true
	}
	return nil
}
