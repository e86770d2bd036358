package mcq

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhisek/mcqgen/internal/llm"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ParseResult holds the questions that survived parsing and validation.
type ParseResult struct {
	Questions []Question

	// Warnings has one entry per dropped element, in array order.
	Warnings []string

	// Total is the number of elements in the extracted array.
	Total int
}

// Dropped returns how many elements were rejected.
func (r *ParseResult) Dropped() int {
	return r.Total - len(r.Questions)
}

// Parser extracts questions from raw model output.
type Parser struct {
	validators []Validator
}

// NewParser returns a Parser running the given validators in order. A nil
// slice means DefaultValidators.
func NewParser(validators []Validator) *Parser {
	if validators == nil {
		validators = DefaultValidators()
	}
	return &Parser{validators: validators}
}

// Parse uses the default validator chain.
func Parse(raw string) (*ParseResult, error) {
	return NewParser(nil).Parse(raw)
}

// Parse takes the text between the first '[' and the last ']' as a JSON
// array of questions. Elements that fail the item schema or a validator are
// dropped with a warning.
func (p *Parser) Parse(raw string) (*ParseResult, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end < 0 || end < start {
		return nil, &MalformedResponseError{Reason: "no JSON array found"}
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(raw[start:end+1]), &elems); err != nil {
		return nil, &MalformedResponseError{Reason: "invalid JSON array", Err: err}
	}

	schema, err := itemSchema()
	if err != nil {
		return nil, fmt.Errorf("compile item schema: %w", err)
	}

	result := &ParseResult{Total: len(elems)}
	for i, elem := range elems {
		q, reason := p.parseItem(schema, elem)
		if reason != "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("item %d: %s", i, reason))
			continue
		}
		result.Questions = append(result.Questions, *q)
	}

	if len(result.Questions) == 0 {
		return nil, &EmptyResultError{Total: result.Total, Warnings: result.Warnings}
	}
	return result, nil
}

// parseItem returns the question or a non-empty rejection reason.
func (p *Parser) parseItem(schema *jsonschema.Schema, elem json.RawMessage) (*Question, string) {
	var doc any
	if err := json.Unmarshal(elem, &doc); err != nil {
		return nil, fmt.Sprintf("invalid JSON: %v", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Sprintf("schema: %s", firstLine(err.Error()))
	}

	var q Question
	if err := json.Unmarshal(elem, &q); err != nil {
		return nil, fmt.Sprintf("decode: %v", err)
	}
	q.ID = ""
	q.Topic = strings.TrimSpace(q.Topic)
	q.Difficulty = strings.TrimSpace(q.Difficulty)
	q.Question = strings.TrimSpace(q.Question)
	q.Answer = strings.TrimSpace(q.Answer)
	for i := range q.Options {
		q.Options[i] = strings.TrimSpace(q.Options[i])
	}

	for _, v := range p.validators {
		if verr := v.Validate(&q); verr != nil {
			return nil, verr.Error()
		}
	}
	return &q, ""
}

// itemSchema compiles the per-element schema once; llm caches it by name.
func itemSchema() (*jsonschema.Schema, error) {
	return llm.CompileSchema(&llm.Schema{Name: "mcq-item", Definition: itemDefinition})
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
