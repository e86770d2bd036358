package mcq

import "testing"

func validQuestion() *Question {
	return &Question{
		Topic:      "Arrays",
		Difficulty: "Medium",
		Question:   "What is the index of the first element in a Go slice?",
		Options:    []string{"0", "1", "-1", "It depends"},
		Answer:     "0",
	}
}

func TestStructural_ValidQuestion(t *testing.T) {
	v := &StructuralValidator{}
	if err := v.Validate(validQuestion()); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestStructural_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(q *Question)
	}{
		{"empty question", func(q *Question) { q.Question = "  " }},
		{"empty topic", func(q *Question) { q.Topic = "" }},
		{"empty difficulty", func(q *Question) { q.Difficulty = "" }},
		{"empty answer", func(q *Question) { q.Answer = "" }},
		{"three options", func(q *Question) { q.Options = q.Options[:3] }},
		{"five options", func(q *Question) { q.Options = append(q.Options, "x") }},
		{"blank option", func(q *Question) { q.Options[2] = " " }},
		{"duplicate option", func(q *Question) { q.Options[3] = "1" }},
		{"duplicate option case", func(q *Question) { q.Options[3] = "IT DEPENDS"; q.Options[2] = "it depends" }},
	}
	v := &StructuralValidator{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := validQuestion()
			tt.mutate(q)
			err := v.Validate(q)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if err.Validator != "structural" {
				t.Errorf("expected validator %q, got %q", "structural", err.Validator)
			}
		})
	}
}

func TestStructural_CodeInQuestionText(t *testing.T) {
	v := &StructuralValidator{}
	for _, text := range []string{
		"If i<n and n>0 hold, how many times does for(i=0;i<n;i++) run?",
		"What does List<String> declare in Java?",
		"Which header provides std::vector<int>?",
		"What is the value type of Map<K,V>?",
		"What does the <br> element do in HTML?",
	} {
		q := validQuestion()
		q.Question = text
		if err := v.Validate(q); err != nil {
			t.Errorf("question %q: unexpected error %v", text, err)
		}
	}
}

func TestAnswer_Resolution(t *testing.T) {
	tests := []struct {
		answer string
		want   string
	}{
		{"0", "0"},
		{"it depends", "It depends"},
		{"  -1 ", "-1"},
		{"B", "1"},
		{"d", "It depends"},
		{"(c)", "-1"},
		{"A)", "0"},
		{"Option B", "1"},
	}
	v := &AnswerValidator{}
	for _, tt := range tests {
		q := validQuestion()
		q.Answer = tt.answer
		if err := v.Validate(q); err != nil {
			t.Errorf("answer %q: unexpected error %v", tt.answer, err)
			continue
		}
		if q.Answer != tt.want {
			t.Errorf("answer %q resolved to %q, want %q", tt.answer, q.Answer, tt.want)
		}
	}
}

func TestAnswer_NoMatch(t *testing.T) {
	v := &AnswerValidator{}
	for _, answer := range []string{"42", "E", "AB"} {
		q := validQuestion()
		q.Answer = answer
		err := v.Validate(q)
		if err == nil {
			t.Errorf("answer %q: expected error", answer)
			continue
		}
		if err.Validator != "answer" {
			t.Errorf("expected validator %q, got %q", "answer", err.Validator)
		}
	}
}
