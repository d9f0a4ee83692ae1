package store

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/atomastery/internal/structure"
)

// LessonRepo stores lesson structures. It implements structure.Provider.
type LessonRepo struct {
	db *sql.DB
}

// Structure returns the lesson's elements in prerequisite order, or
// structure.ErrNotFound when the lesson has none.
func (r *LessonRepo) Structure(ctx context.Context, lessonID string) (*structure.Lesson, error) {
	query, args := builder().
		Select("element_id", "title", "weight", "position").
		From(entsql.Table(LessonElementsTable.Name)).
		Where(entsql.EQ("lesson_id", lessonID)).
		OrderBy("position").
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query lesson elements: %w", err)
	}
	defer rows.Close()

	lesson := &structure.Lesson{ID: lessonID}
	for rows.Next() {
		var el structure.Element
		if err := rows.Scan(&el.ID, &el.Title, &el.Weight, &el.Order); err != nil {
			return nil, fmt.Errorf("scan lesson element: %w", err)
		}
		lesson.Elements = append(lesson.Elements, el)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lesson elements: %w", err)
	}
	if len(lesson.Elements) == 0 {
		return nil, fmt.Errorf("lesson %q: %w", lessonID, structure.ErrNotFound)
	}
	return lesson, nil
}

// SaveLesson replaces the stored structure of l. The lesson is validated
// first; an invalid lesson leaves the stored one untouched.
func (r *LessonRepo) SaveLesson(ctx context.Context, l *structure.Lesson) (err error) {
	if err := structure.Validate(l); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query, args := builder().
		Delete(LessonElementsTable.Name).
		Where(entsql.EQ("lesson_id", l.ID)).
		Query()
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear lesson %q: %w", l.ID, err)
	}

	// An empty lesson is stored as no rows, which reads back as NotFound.
	if len(l.Elements) > 0 {
		ins := builder().
			Insert(LessonElementsTable.Name).
			Columns("lesson_id", "element_id", "title", "weight", "position")
		for _, el := range l.Elements {
			ins = ins.Values(l.ID, el.ID, el.Title, el.Weight, el.Order)
		}
		query, args = ins.Query()
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert lesson %q: %w", l.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit lesson %q: %w", l.ID, err)
	}
	return nil
}

// LessonIDs lists every lesson with a stored structure.
func (r *LessonRepo) LessonIDs(ctx context.Context) ([]string, error) {
	query, args := builder().
		Select("lesson_id").
		Distinct().
		From(entsql.Table(LessonElementsTable.Name)).
		OrderBy("lesson_id").
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query lesson ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan lesson id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
