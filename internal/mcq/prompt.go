package mcq

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const shapeBlock = `Each item must be JSON like:
[
  {
    "topic": "<topic>",
    "difficulty": "<difficulty>",
    "question": "<the question>",
    "options": ["<option 1>", "<option 2>", "<option 3>", "<option 4>"],
    "answer": "<the correct answer text>"
  }
]`

const guidelines = `Guidelines:
- Provide exactly 4 options per question. The answer must be the full text of one of the options.
- Ensure clarity, correctness, and balanced difficulty.
- Use consistent formatting (no HTML tags or extra text).
- Do NOT include explanations or any text outside the JSON array.`

const priorGuidelines = `- Avoid repeating questions from the previous assessment.
- Calibrate difficulty to the performance observed in the previous assessment.`

// BuildPrompt renders the generation prompt. It is a pure function of req.
func BuildPrompt(req GenerationRequest) string {
	var b strings.Builder

	b.WriteString("Generate high-quality multiple-choice questions in JSON format.\n\n")

	b.WriteString("Parameters:\n")
	fmt.Fprintf(&b, "1. Difficulty level: %s\n", req.Difficulty)
	b.WriteString("2. Topics:\n")
	for _, t := range req.Topics {
		fmt.Fprintf(&b, "- %s: %d question(s)\n", t.Name, t.Count)
	}
	fmt.Fprintf(&b, "3. Audience: %s\n", req.Audience)

	hasPrior := req.HasPreviousAssessment()
	if hasPrior {
		b.WriteString("\nBelow is the data from the previous assessment. Use it as a reference to tailor this assessment to the average performance it shows:\n\n")
		b.WriteString(renderAssessment(req.PreviousAssessment))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(shapeBlock)
	b.WriteString("\n\n")
	b.WriteString(guidelines)
	if hasPrior {
		b.WriteString("\n")
		b.WriteString(priorGuidelines)
	}
	b.WriteString("\n")

	return b.String()
}

// renderAssessment pretty-prints JSON summaries and passes anything else
// through as text.
func renderAssessment(raw json.RawMessage) string {
	var out bytes.Buffer
	if err := json.Indent(&out, bytes.TrimSpace(raw), "", "  "); err != nil {
		return strings.TrimSpace(string(raw))
	}
	return out.String()
}
