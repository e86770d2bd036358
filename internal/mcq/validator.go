package mcq

import "fmt"

// Validator checks a parsed question before it becomes a candidate.
// Implementations should be stateless and safe for concurrent use.
type Validator interface {
	// Name returns a short identifier used in warnings, e.g. "structural".
	Name() string

	// Validate returns nil if the question passes. Validators may normalize
	// fields in place (for example resolving an option letter to its text).
	Validate(q *Question) *ValidationError
}

// ValidationError describes why a question was rejected.
type ValidationError struct {
	Validator string // Name of the validator that failed
	Message   string // Human-readable description of the failure
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validator %q: %s", e.Validator, e.Message)
}

// DefaultValidators returns the standard validator chain.
func DefaultValidators() []Validator {
	return []Validator{
		&StructuralValidator{},
		&AnswerValidator{},
	}
}
