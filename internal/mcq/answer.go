package mcq

import (
	"fmt"
	"strings"
)

// AnswerValidator ensures the answer names one of the options. Answers given
// as a bare option letter ("B", "b)", "(C)") are resolved to the option text;
// answers that match an option up to case and surrounding space are replaced
// with the option's exact text.
type AnswerValidator struct{}

func (v *AnswerValidator) Name() string { return "answer" }

func (v *AnswerValidator) Validate(q *Question) *ValidationError {
	answer := strings.TrimSpace(q.Answer)

	for _, opt := range q.Options {
		if strings.EqualFold(strings.TrimSpace(opt), answer) {
			q.Answer = opt
			return nil
		}
	}

	if idx, ok := optionLetter(answer); ok && idx < len(q.Options) {
		q.Answer = q.Options[idx]
		return nil
	}

	return &ValidationError{
		Validator: v.Name(),
		Message:   fmt.Sprintf("answer %q does not match any option", answer),
	}
}

// optionLetter parses answers like "A", "b", "C)", "(d)" or "Option B".
func optionLetter(s string) (int, bool) {
	s = strings.TrimSpace(strings.ToUpper(s))
	s = strings.TrimPrefix(s, "OPTION ")
	s = strings.Trim(s, "().: ")
	if len(s) != 1 {
		return 0, false
	}
	c := s[0]
	if c < 'A' || c >= 'A'+OptionCount {
		return 0, false
	}
	return int(c - 'A'), true
}
