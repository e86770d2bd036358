package mcq

import "fmt"

// GenerationError indicates the generative model could not be reached or
// rejected the request. The cause is preserved for errors.As.
type GenerationError struct {
	Model string
	Err   error
}

func (e *GenerationError) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("generation failed (model %s): %v", e.Model, e.Err)
	}
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// MalformedResponseError indicates the model output holds no usable JSON array.
type MalformedResponseError struct {
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed model response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed model response: %s", e.Reason)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// EmptyResultError indicates the response parsed but no element survived
// validation.
type EmptyResultError struct {
	// Total is the number of elements found in the array.
	Total    int
	Warnings []string
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("no valid questions in model response (%d elements, %d rejected)", e.Total, len(e.Warnings))
}
