package store

import (
	"context"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int    // max results (0 = unlimited)
	Purpose string // exact purpose match, empty for all
	RunID   string // exact run match, empty for all
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	RunID        string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a stored LLM request.
type LLMRequestEvent struct {
	ID        int
	Timestamp time.Time
	LLMRequestEventData
}

// EventRepo provides append access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
}

// PurposeUsage aggregates token usage for one purpose.
type PurposeUsage struct {
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// ModelUsage aggregates token usage for one model.
type ModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// SetTopic is one requested topic of a question set.
type SetTopic struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// QuestionSet is the header row of one generation run's output.
type QuestionSet struct {
	ID             string
	CohortID       string
	Difficulty     string
	Topics         []SetTopic
	Audience       string
	Model          string
	EmbeddingModel string
	Threshold      float64
	GeneratedAt    time.Time

	AcceptedCount  int
	DuplicateCount int
	ExcludedCount  int
	DroppedCount   int
}

// QuestionRecord is a stored question.
type QuestionRecord struct {
	ID         string
	SetID      string
	Position   int
	Topic      string
	Difficulty string
	Question   string
	Options    []string
	Answer     string
	Active     bool
}

// CorpusStat summarizes stored embeddings per model.
type CorpusStat struct {
	Model      string
	Dimensions int
	Entries    int
	Empty      int // rows with a NULL or empty embedding
}
