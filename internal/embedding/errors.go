package embedding

import "fmt"

// EmbeddingError is a per-item failure. Other items of the same call are
// unaffected.
type EmbeddingError struct {
	Index  int
	Reason string
	Err    error
}

func (e *EmbeddingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("embedding item %d: %s: %v", e.Index, e.Reason, e.Err)
	}
	return fmt.Sprintf("embedding item %d: %s", e.Index, e.Reason)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }
