package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table definitions, migrated with ent's Atlas-backed migrator on Open.

var (
	llmRequestEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString},
		{Name: "run_id", Type: field.TypeString, Default: ""},
		{Name: "input_tokens", Type: field.TypeInt, Default: 0},
		{Name: "output_tokens", Type: field.TypeInt, Default: 0},
		{Name: "latency_ms", Type: field.TypeInt64, Default: 0},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Default: ""},
		{Name: "request_body", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "response_body", Type: field.TypeString, Size: 2147483647, Default: ""},
	}
	llmRequestEventsTable = &schema.Table{
		Name:       "llm_request_events",
		Columns:    llmRequestEventsColumns,
		PrimaryKey: []*schema.Column{llmRequestEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "llmrequestevent_purpose", Columns: []*schema.Column{llmRequestEventsColumns[4]}},
		},
	}

	questionSetsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "cohort_id", Type: field.TypeString, Default: ""},
		{Name: "difficulty", Type: field.TypeString},
		{Name: "topics", Type: field.TypeJSON},
		{Name: "audience", Type: field.TypeString, Default: ""},
		{Name: "model", Type: field.TypeString, Default: ""},
		{Name: "embedding_model", Type: field.TypeString, Default: ""},
		{Name: "threshold", Type: field.TypeFloat64},
		{Name: "generated_at", Type: field.TypeTime},
		{Name: "accepted_count", Type: field.TypeInt},
		{Name: "duplicate_count", Type: field.TypeInt},
		{Name: "excluded_count", Type: field.TypeInt},
		{Name: "dropped_count", Type: field.TypeInt},
	}
	questionSetsTable = &schema.Table{
		Name:       "question_sets",
		Columns:    questionSetsColumns,
		PrimaryKey: []*schema.Column{questionSetsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "questionset_cohort_id", Columns: []*schema.Column{questionSetsColumns[1]}},
		},
	}

	questionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "set_id", Type: field.TypeString},
		{Name: "position", Type: field.TypeInt},
		{Name: "topic", Type: field.TypeString},
		{Name: "difficulty", Type: field.TypeString},
		{Name: "question", Type: field.TypeString, Size: 2147483647},
		{Name: "options", Type: field.TypeJSON},
		{Name: "answer", Type: field.TypeString},
		{Name: "is_active", Type: field.TypeBool, Default: true},
	}
	questionsTable = &schema.Table{
		Name:       "questions",
		Columns:    questionsColumns,
		PrimaryKey: []*schema.Column{questionsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "questions_question_sets_questions",
				Columns:    []*schema.Column{questionsColumns[1]},
				RefColumns: []*schema.Column{questionSetsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "question_set_id_position", Unique: true, Columns: []*schema.Column{questionsColumns[1], questionsColumns[2]}},
		},
	}

	corpusEntriesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "question_id", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "dimensions", Type: field.TypeInt},
		{Name: "embedding", Type: field.TypeBytes, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
	}
	corpusEntriesTable = &schema.Table{
		Name:       "corpus_entries",
		Columns:    corpusEntriesColumns,
		PrimaryKey: []*schema.Column{corpusEntriesColumns[0]},
		Indexes: []*schema.Index{
			{Name: "corpusentry_model", Columns: []*schema.Column{corpusEntriesColumns[2]}},
			{Name: "corpusentry_question_id_model", Columns: []*schema.Column{corpusEntriesColumns[1], corpusEntriesColumns[2]}},
		},
	}

	tables = []*schema.Table{
		llmRequestEventsTable,
		questionSetsTable,
		questionsTable,
		corpusEntriesTable,
	}
)

func init() {
	questionsTable.ForeignKeys[0].RefTable = questionSetsTable
}
