package mcq

import "github.com/abhisek/mcqgen/internal/llm"

// itemDefinition is the JSON schema for one question in the model output.
// Content checks (empty strings, duplicate options, answer matching) are left
// to the validator chain so they produce specific warnings.
var itemDefinition = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"topic": map[string]any{
			"type":        "string",
			"description": "The topic this question belongs to, as given in the request",
		},
		"difficulty": map[string]any{
			"type":        "string",
			"description": "The difficulty level, as given in the request",
		},
		"question": map[string]any{
			"type":        "string",
			"description": "The question text in plain text, no HTML",
		},
		"options": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"minItems":    OptionCount,
			"maxItems":    OptionCount,
			"description": "Exactly 4 answer options",
		},
		"answer": map[string]any{
			"type":        "string",
			"description": "The full text of the correct option",
		},
	},
	"required": []any{"topic", "difficulty", "question", "options", "answer"},
}

// QuestionSetSchema is sent to providers when structured output is enabled.
// The array sits under "questions" because some providers require an object
// at the top level; bracket extraction still finds it.
var QuestionSetSchema = &llm.Schema{
	Name:        "mcq-set",
	Description: "A set of multiple-choice questions",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type":  "array",
				"items": closed(itemDefinition),
			},
		},
		"required":             []any{"questions"},
		"additionalProperties": false,
	},
}

// closed returns a copy of an object schema that rejects unknown keys, as
// strict structured-output modes require. Parsing keeps the open form so
// extra keys in free-form output are ignored.
func closed(def map[string]any) map[string]any {
	out := make(map[string]any, len(def)+1)
	for k, v := range def {
		out[k] = v
	}
	out["additionalProperties"] = false
	return out
}
