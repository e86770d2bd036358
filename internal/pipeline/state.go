package pipeline

import (
	"errors"
	"fmt"
)

// State is a step of a run. Runs move strictly forward through the states
// in declaration order, or stop in Failed.
type State string

const (
	StateIdle        State = "idle"
	StatePromptBuilt State = "prompt_built"
	StateGenerated   State = "generated"
	StateParsed      State = "parsed"
	StateEmbedded    State = "embedded"
	StateFiltered    State = "filtered"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// ErrAllEmbeddingsFailed means no parsed question could be embedded, so
// nothing can be checked for uniqueness.
var ErrAllEmbeddingsFailed = errors.New("every candidate failed to embed")

// RunError is a fatal run failure. Stage is the last state reached before
// the failing step.
type RunError struct {
	Stage State
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("pipeline failed after %s: %v", e.Stage, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }
