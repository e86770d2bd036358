package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

// QuestionSetRepo stores the accepted questions of each generation run.
type QuestionSetRepo struct {
	db *sql.DB
}

var questionSetColumns = []string{
	"id", "cohort_id", "difficulty", "topics", "audience", "model",
	"embedding_model", "threshold", "generated_at",
	"accepted_count", "duplicate_count", "excluded_count", "dropped_count",
}

var questionColumns = []string{
	"id", "set_id", "position", "topic", "difficulty", "question",
	"options", "answer", "is_active",
}

// Save writes the set and its questions in one transaction. Question SetID
// and Position are filled in from the set and slice order.
func (r *QuestionSetRepo) Save(ctx context.Context, set *QuestionSet, questions []QuestionRecord) error {
	if set.ID == "" {
		return fmt.Errorf("question set ID is required")
	}
	topics, err := json.Marshal(set.Topics)
	if err != nil {
		return fmt.Errorf("encode topics: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	query, args := builder().Insert(questionSetsTable.Name).
		Columns(questionSetColumns...).
		Values(
			set.ID, set.CohortID, set.Difficulty, string(topics), set.Audience, set.Model,
			set.EmbeddingModel, set.Threshold, set.GeneratedAt.UTC(),
			set.AcceptedCount, set.DuplicateCount, set.ExcludedCount, set.DroppedCount,
		).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert question set: %w", err)
	}

	if len(questions) > 0 {
		ins := builder().Insert(questionsTable.Name).Columns(questionColumns...)
		for i := range questions {
			q := &questions[i]
			q.SetID = set.ID
			q.Position = i
			opts, err := json.Marshal(q.Options)
			if err != nil {
				return fmt.Errorf("encode options: %w", err)
			}
			ins.Values(q.ID, q.SetID, q.Position, q.Topic, q.Difficulty, q.Question, string(opts), q.Answer, q.Active)
		}
		query, args := ins.Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert questions: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Get returns a set and its questions in position order, or ErrNotFound.
func (r *QuestionSetRepo) Get(ctx context.Context, id string) (*QuestionSet, []QuestionRecord, error) {
	query, args := builder().Select(questionSetColumns...).
		From(entsql.Table(questionSetsTable.Name)).
		Where(entsql.EQ("id", id)).
		Query()

	set, err := scanQuestionSet(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("question set %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, nil, err
	}

	query, args = builder().Select(questionColumns...).
		From(entsql.Table(questionsTable.Name)).
		Where(entsql.EQ("set_id", id)).
		OrderBy("position").
		Query()
	questions, err := r.queryQuestions(ctx, query, args)
	if err != nil {
		return nil, nil, err
	}
	return set, questions, nil
}

// List returns sets newest first. A cohortID filters to one cohort.
func (r *QuestionSetRepo) List(ctx context.Context, cohortID string, limit int) ([]QuestionSet, error) {
	sel := builder().Select(questionSetColumns...).
		From(entsql.Table(questionSetsTable.Name)).
		OrderBy(entsql.Desc("generated_at"))
	if cohortID != "" {
		sel.Where(entsql.EQ("cohort_id", cohortID))
	}
	if limit > 0 {
		sel.Limit(limit)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query question sets: %w", err)
	}
	defer rows.Close()

	var out []QuestionSet
	for rows.Next() {
		set, err := scanQuestionSet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *set)
	}
	return out, rows.Err()
}

// MissingEmbeddings returns active questions that have no corpus entry for
// model, oldest set first.
func (r *QuestionSetRepo) MissingEmbeddings(ctx context.Context, model string, limit int) ([]QuestionRecord, error) {
	q := entsql.Table(questionsTable.Name).As("q")
	s := entsql.Table(questionSetsTable.Name).As("s")
	c := entsql.Table(corpusEntriesTable.Name).As("c")

	cols := make([]string, len(questionColumns))
	for i, col := range questionColumns {
		cols[i] = q.C(col)
	}

	sel := builder().Select(cols...).From(q)
	sel.Join(s).On(q.C("set_id"), s.C("id"))
	sel.LeftJoin(c).OnP(entsql.And(
		entsql.ColumnsEQ(c.C("question_id"), q.C("id")),
		entsql.EQ(c.C("model"), model),
	))
	sel.Where(entsql.And(
		entsql.IsNull(c.C("id")),
		entsql.EQ(q.C("is_active"), true),
	)).OrderBy(s.C("generated_at"), q.C("position"))
	if limit > 0 {
		sel.Limit(limit)
	}

	query, args := sel.Query()
	return r.queryQuestions(ctx, query, args)
}

func (r *QuestionSetRepo) queryQuestions(ctx context.Context, query string, args []any) ([]QuestionRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var out []QuestionRecord
	for rows.Next() {
		var q QuestionRecord
		var opts string
		if err := rows.Scan(&q.ID, &q.SetID, &q.Position, &q.Topic, &q.Difficulty, &q.Question, &opts, &q.Answer, &q.Active); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal([]byte(opts), &q.Options); err != nil {
			return nil, fmt.Errorf("decode options of %s: %w", q.ID, err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func scanQuestionSet(row rowScanner) (*QuestionSet, error) {
	var set QuestionSet
	var topics string
	err := row.Scan(
		&set.ID, &set.CohortID, &set.Difficulty, &topics, &set.Audience, &set.Model,
		&set.EmbeddingModel, &set.Threshold, &set.GeneratedAt,
		&set.AcceptedCount, &set.DuplicateCount, &set.ExcludedCount, &set.DroppedCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan question set: %w", err)
	}
	if err := json.Unmarshal([]byte(topics), &set.Topics); err != nil {
		return nil, fmt.Errorf("decode topics of %s: %w", set.ID, err)
	}
	return &set, nil
}
