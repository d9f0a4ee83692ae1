package grading

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/atomastery/internal/mastery"
	"github.com/abhisek/atomastery/internal/store"
	"github.com/abhisek/atomastery/internal/structure"
)

type recordingUpdater struct {
	mu     sync.Mutex
	deltas []mastery.Delta
	fail   map[string]error
}

func (r *recordingUpdater) ApplyElementDelta(_ context.Context, d mastery.Delta) (*mastery.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deltas = append(r.deltas, d)
	if err := r.fail[d.ElementID]; err != nil {
		return nil, err
	}
	return &mastery.Result{Outcome: mastery.OutcomeApplied, GlobalMastery: 42}, nil
}

type failingBank struct{ err error }

func (b failingBank) Questions(context.Context, []string) ([]Question, error) { return nil, b.err }

func bank() StaticBank {
	return StaticBank{
		"q1": {ID: "q1", LessonID: "l1", AtomID: "A", WidgetType: WidgetMCQ, CorrectAnswer: json.RawMessage(`"4"`)},
		"q2": {ID: "q2", LessonID: "l1", AtomID: "A", WidgetType: WidgetTrueFalse, CorrectAnswer: json.RawMessage(`false`)},
		"q3": {ID: "q3", LessonID: "l1", AtomID: "B", WidgetType: WidgetOrdering, CorrectAnswer: json.RawMessage(`["x","y"]`)},
		"q9": {ID: "q9", LessonID: "other", AtomID: "Z", WidgetType: WidgetMCQ, CorrectAnswer: json.RawMessage(`"z"`)},
	}
}

func sub(id, answer string) Submission {
	return Submission{QuestionID: id, RawAnswer: json.RawMessage(answer)}
}

func TestGradeSubmission_AccumulatesPerAtom(t *testing.T) {
	upd := &recordingUpdater{}
	svc := NewService(bank(), upd, nil)

	res, err := svc.GradeSubmission(context.Background(), "u1", "l1", []Submission{
		sub("q1", `"4"`),
		sub("q2", `true`),
		sub("q3", `["x","y"]`),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.CorrectCount)
	assert.Equal(t, 3, res.TotalQuestions)
	assert.Equal(t, 67, res.Percentage)
	assert.Equal(t, map[string]int{"A": 50, "B": 100}, res.PerAtomDeltas)

	require.Len(t, upd.deltas, 2, "one mastery update per atom")
	assert.Equal(t, "A", upd.deltas[0].ElementID)
	assert.Equal(t, 50, upd.deltas[0].Delta)
	assert.Equal(t, "B", upd.deltas[1].ElementID)
	for _, d := range upd.deltas {
		assert.Equal(t, mastery.ReasonQuiz, d.Reason)
		assert.Equal(t, "u1", d.UserID)
		assert.Equal(t, "l1", d.LessonID)
	}
	require.Len(t, res.Atoms, 2)
	assert.True(t, res.Atoms[0].Applied)
	assert.Equal(t, 42, res.Atoms[0].GlobalMastery)
}

func TestGradeSubmission_PerfectReason(t *testing.T) {
	upd := &recordingUpdater{}
	svc := NewService(bank(), upd, nil)

	res, err := svc.GradeSubmission(context.Background(), "u1", "l1", []Submission{
		sub("q1", `" 4 "`),
		sub("q3", `["x","y"]`),
	})
	require.NoError(t, err)
	assert.Equal(t, 100, res.Percentage)
	for _, d := range upd.deltas {
		assert.Equal(t, mastery.ReasonQuizPerfect, d.Reason)
	}
}

func TestGradeSubmission_SkipsUnknownQuestions(t *testing.T) {
	upd := &recordingUpdater{}
	svc := NewService(bank(), upd, nil)

	res, err := svc.GradeSubmission(context.Background(), "u1", "l1", []Submission{
		sub("missing", `"?"`),
		sub("q9", `"z"`),
		sub("q1", `"5"`),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalQuestions)
	assert.Equal(t, 0, res.CorrectCount)
	assert.ElementsMatch(t, []string{"missing", "q9"}, res.Skipped)
	assert.Equal(t, map[string]int{"A": IncorrectDelta}, res.PerAtomDeltas)
}

func TestGradeSubmission_WidgetMismatchIsWrong(t *testing.T) {
	upd := &recordingUpdater{}
	svc := NewService(bank(), upd, nil)

	res, err := svc.GradeSubmission(context.Background(), "u1", "l1", []Submission{
		{QuestionID: "q1", WidgetType: WidgetMCM, RawAnswer: json.RawMessage(`"4"`)},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.CorrectCount)
}

func TestGradeSubmission_EmptyBatch(t *testing.T) {
	upd := &recordingUpdater{}
	svc := NewService(bank(), upd, nil)

	res, err := svc.GradeSubmission(context.Background(), "u1", "l1", nil)
	require.NoError(t, err)
	assert.Zero(t, res.TotalQuestions)
	assert.Zero(t, res.Percentage)
	assert.Empty(t, upd.deltas)
}

func TestGradeSubmission_MasteryFailureDoesNotFailGrading(t *testing.T) {
	upd := &recordingUpdater{fail: map[string]error{"A": mastery.ErrTransientFailure}}
	svc := NewService(bank(), upd, nil)

	res, err := svc.GradeSubmission(context.Background(), "u1", "l1", []Submission{
		sub("q1", `"4"`),
		sub("q3", `["x","y"]`),
	})
	require.NoError(t, err)
	require.Len(t, res.Atoms, 2)
	assert.False(t, res.Atoms[0].Applied)
	assert.NotEmpty(t, res.Atoms[0].Error)
	assert.True(t, res.Atoms[1].Applied)
}

func TestGradeSubmission_Errors(t *testing.T) {
	svc := NewService(failingBank{err: errors.New("disk gone")}, &recordingUpdater{}, nil)
	_, err := svc.GradeSubmission(context.Background(), "u1", "l1", []Submission{sub("q1", `"4"`)})
	assert.ErrorIs(t, err, mastery.ErrPersistence)

	_, err = svc.GradeSubmission(context.Background(), "", "l1", nil)
	assert.ErrorIs(t, err, mastery.ErrInvalidInput)
}

func TestGradeSubmission_WithMasteryAndStore(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "grade.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	ctx := context.Background()

	lesson := &structure.Lesson{ID: "l1", Elements: []structure.Element{
		{ID: "A", Title: "A", Weight: 1, Order: 1},
		{ID: "B", Title: "B", Weight: 1, Order: 2},
	}}
	require.NoError(t, st.LessonRepo().SaveLesson(ctx, lesson))

	qb := NewStoreBank(st.QuestionRepo())
	var qs []Question
	for _, q := range bank() {
		qs = append(qs, q)
	}
	require.NoError(t, qb.SaveQuestions(ctx, qs))

	ms := mastery.NewService(st.LessonRepo(), st.RecordRepo())
	svc := NewService(qb, ms, nil)

	res, err := svc.GradeSubmission(ctx, "u1", "l1", []Submission{
		sub("q1", `"4"`),
		sub("q2", `false`),
		sub("q3", `["x","y"]`),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.CorrectCount)

	rec, err := ms.Record(ctx, "u1", "l1")
	require.NoError(t, err)
	assert.Equal(t, 100, rec.Elements["A"].Score)
	// B is gated until A is recorded, and A was applied first.
	assert.Equal(t, 100, rec.Elements["B"].Score)
	assert.Equal(t, 100, rec.GlobalMastery)
	assert.Equal(t, mastery.StatusCompleted, rec.Status)
}
