package grading

import (
	"context"

	"github.com/abhisek/atomastery/internal/store"
)

// QuestionBank returns the answer keys for a set of question IDs. Unknown
// IDs are omitted from the result rather than reported as errors.
type QuestionBank interface {
	Questions(ctx context.Context, ids []string) ([]Question, error)
}

// StoreBank serves questions from the sqlite store.
type StoreBank struct {
	repo *store.QuestionRepo
}

func NewStoreBank(repo *store.QuestionRepo) *StoreBank {
	return &StoreBank{repo: repo}
}

func (b *StoreBank) Questions(ctx context.Context, ids []string) ([]Question, error) {
	rows, err := b.repo.Questions(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]Question, len(rows))
	for i, r := range rows {
		out[i] = Question{
			ID:            r.ID,
			LessonID:      r.LessonID,
			AtomID:        r.AtomID,
			WidgetType:    WidgetType(r.WidgetType),
			CorrectAnswer: r.CorrectAnswer,
		}
	}
	return out, nil
}

// SaveQuestions writes questions through to the store.
func (b *StoreBank) SaveQuestions(ctx context.Context, qs []Question) error {
	rows := make([]store.QuestionData, len(qs))
	for i, q := range qs {
		rows[i] = store.QuestionData{
			ID:            q.ID,
			LessonID:      q.LessonID,
			AtomID:        q.AtomID,
			WidgetType:    string(q.WidgetType),
			CorrectAnswer: q.CorrectAnswer,
		}
	}
	return b.repo.SaveQuestions(ctx, rows)
}

// StaticBank is an in-memory QuestionBank keyed by question ID.
type StaticBank map[string]Question

func (b StaticBank) Questions(_ context.Context, ids []string) ([]Question, error) {
	var out []Question
	for _, id := range ids {
		if q, ok := b[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}
