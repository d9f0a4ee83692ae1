package store

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

// QuestionRepo stores question answer keys for grading.
type QuestionRepo struct {
	db *sql.DB
}

// Questions returns the stored questions among ids. Unknown IDs are
// omitted; order follows the database, not ids.
func (r *QuestionRepo) Questions(ctx context.Context, ids []string) ([]QuestionData, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query, qargs := builder().
		Select("id", "lesson_id", "atom_id", "widget_type", "correct_answer").
		From(entsql.Table(QuestionsTable.Name)).
		Where(entsql.In("id", args...)).
		Query()

	rows, err := r.db.QueryContext(ctx, query, qargs...)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var out []QuestionData
	for rows.Next() {
		var (
			q   QuestionData
			raw string
		)
		if err := rows.Scan(&q.ID, &q.LessonID, &q.AtomID, &q.WidgetType, &raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.CorrectAnswer = []byte(raw)
		out = append(out, q)
	}
	return out, rows.Err()
}

// SaveQuestions inserts or replaces questions by ID.
func (r *QuestionRepo) SaveQuestions(ctx context.Context, qs []QuestionData) error {
	if len(qs) == 0 {
		return nil
	}
	ins := builder().
		Insert(QuestionsTable.Name).
		Columns("id", "lesson_id", "atom_id", "widget_type", "correct_answer")
	for _, q := range qs {
		if q.ID == "" || q.AtomID == "" {
			return fmt.Errorf("question %q: id and atom id are required", q.ID)
		}
		ins = ins.Values(q.ID, q.LessonID, q.AtomID, q.WidgetType, string(q.CorrectAnswer))
	}
	query, args := ins.
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save questions: %w", err)
	}
	return nil
}
