package grading

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/abhisek/atomastery/internal/logger"
	"github.com/abhisek/atomastery/internal/mastery"
)

const (
	// CorrectDelta and IncorrectDelta are added to an atom's score per
	// graded answer.
	CorrectDelta   = 100
	IncorrectDelta = -50
)

// MasteryUpdater applies per-atom score deltas. *mastery.Service
// satisfies it.
type MasteryUpdater interface {
	ApplyElementDelta(ctx context.Context, d mastery.Delta) (*mastery.Result, error)
}

// Service grades quiz submissions and feeds the outcome into mastery.
type Service struct {
	bank    QuestionBank
	mastery MasteryUpdater
	log     *logger.Logger
	tracer  trace.Tracer
}

// NewService creates a grading service. A nil logger discards output.
func NewService(bank QuestionBank, m MasteryUpdater, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		bank:    bank,
		mastery: m,
		log:     log,
		tracer:  otel.Tracer("github.com/abhisek/atomastery/internal/grading"),
	}
}

// GradeSubmission checks every submission against its answer key and
// applies the accumulated delta once per affected atom.
//
// Submissions for unknown questions, or questions that belong to another
// lesson, are skipped and do not count towards the total. Mastery
// failures are logged and reported per atom; they never fail grading.
func (s *Service) GradeSubmission(ctx context.Context, userID, lessonID string, subs []Submission) (*Result, error) {
	if userID == "" {
		return nil, &mastery.InputError{Field: "userId", Reason: "is required"}
	}
	if lessonID == "" {
		return nil, &mastery.InputError{Field: "lessonId", Reason: "is required"}
	}

	ctx, span := s.tracer.Start(ctx, "grading.GradeSubmission", trace.WithAttributes(
		attribute.String("grading.lesson_id", lessonID),
		attribute.Int("grading.submissions", len(subs)),
	))
	defer span.End()
	log := s.log.With("user_id", userID, "lesson_id", lessonID)

	questions, err := s.load(ctx, subs)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	res := &Result{PerAtomDeltas: make(map[string]int)}
	for _, sub := range subs {
		q, ok := questions[sub.QuestionID]
		if !ok || (q.LessonID != "" && q.LessonID != lessonID) {
			res.Skipped = append(res.Skipped, sub.QuestionID)
			continue
		}
		res.TotalQuestions++
		correct := (sub.WidgetType == "" || sub.WidgetType == q.WidgetType) && CheckAnswer(q, sub.RawAnswer)
		if correct {
			res.CorrectCount++
			res.PerAtomDeltas[q.AtomID] += CorrectDelta
		} else {
			res.PerAtomDeltas[q.AtomID] += IncorrectDelta
		}
	}
	if len(res.Skipped) > 0 {
		log.Warn("skipped submissions for unknown questions", "question_ids", res.Skipped)
	}
	if res.TotalQuestions > 0 {
		res.Percentage = int(math.Round(float64(res.CorrectCount) * 100 / float64(res.TotalQuestions)))
	}

	reason := mastery.ReasonQuiz
	if res.TotalQuestions > 0 && res.CorrectCount == res.TotalQuestions {
		reason = mastery.ReasonQuizPerfect
	}

	atoms := make([]string, 0, len(res.PerAtomDeltas))
	for id := range res.PerAtomDeltas {
		atoms = append(atoms, id)
	}
	sort.Strings(atoms)

	for _, atom := range atoms {
		out := AtomOutcome{AtomID: atom, Delta: res.PerAtomDeltas[atom]}
		mr, err := s.mastery.ApplyElementDelta(ctx, mastery.Delta{
			UserID:    userID,
			LessonID:  lessonID,
			ElementID: atom,
			Delta:     out.Delta,
			Reason:    reason,
		})
		switch {
		case err != nil:
			log.Error("mastery update failed", "atom_id", atom, "error", err)
			out.Error = err.Error()
		default:
			out.Applied = mr.Outcome == mastery.OutcomeApplied
			out.Outcome = string(mr.Outcome)
			out.GlobalMastery = mr.GlobalMastery
		}
		res.Atoms = append(res.Atoms, out)
	}

	span.SetAttributes(
		attribute.Int("grading.correct", res.CorrectCount),
		attribute.Int("grading.total", res.TotalQuestions),
	)
	log.Info("graded submission", "correct", res.CorrectCount, "total", res.TotalQuestions, "atoms", len(atoms))
	return res, nil
}

func (s *Service) load(ctx context.Context, subs []Submission) (map[string]Question, error) {
	seen := make(map[string]bool, len(subs))
	var ids []string
	for _, sub := range subs {
		if sub.QuestionID == "" || seen[sub.QuestionID] {
			continue
		}
		seen[sub.QuestionID] = true
		ids = append(ids, sub.QuestionID)
	}
	if len(ids) == 0 {
		return map[string]Question{}, nil
	}

	qs, err := s.bank.Questions(ctx, ids)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: load questions: %w", mastery.ErrTransientFailure, err)
		}
		return nil, &mastery.PersistenceError{Op: "load questions", Err: err}
	}
	out := make(map[string]Question, len(qs))
	for _, q := range qs {
		out[q.ID] = q
	}
	return out, nil
}
