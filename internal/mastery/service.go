package mastery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/abhisek/atomastery/internal/lock"
	"github.com/abhisek/atomastery/internal/logger"
	"github.com/abhisek/atomastery/internal/spacedrep"
	"github.com/abhisek/atomastery/internal/store"
	"github.com/abhisek/atomastery/internal/structure"
)

// Repo persists mastery records. Save must be all-or-nothing per key and
// fail with store.ErrRecordConflict when expectedVersion is stale.
type Repo interface {
	Get(ctx context.Context, userID, lessonID string) (*store.MasteryRecordData, error)
	Save(ctx context.Context, rec *store.MasteryRecordData, expectedVersion int64, ev store.MasteryEventData) error
}

// RewardTrigger is invoked once per upward crossing of the completion
// threshold.
type RewardTrigger interface {
	OnMasteryAchieved(ctx context.Context, userID, lessonID string, finalScore int) (*RewardOutcome, error)
}

// RewardOutcome describes what a RewardTrigger granted.
type RewardOutcome struct {
	RewardGranted bool   `json:"rewardGranted"`
	CoinsAdded    int    `json:"coinsAdded"`
	RewardID      string `json:"rewardId,omitempty"`
	Rarity        string `json:"rarity,omitempty"`
}

// Update sets an element (or every element, with structure.AllElements)
// to an observed score.
type Update struct {
	UserID    string
	LessonID  string
	ElementID string
	Score     int
	Reason    string
}

// Delta moves a single element's stored score by Delta. The target score
// is resolved under the key lock, so concurrent deltas compose.
type Delta struct {
	UserID    string
	LessonID  string
	ElementID string
	Delta     int
	Reason    string
}

// Result is the outcome of an applied update.
type Result struct {
	Outcome         Outcome        `json:"outcome"`
	GlobalMastery   int            `json:"globalMastery"`
	Status          Status         `json:"status"`
	PreviousMastery int            `json:"previousMastery"`
	AppliedScore    int            `json:"appliedScore"`
	Guard           *GuardResult   `json:"guard,omitempty"`
	Reward          *RewardOutcome `json:"reward,omitempty"`
	RewardError     string         `json:"rewardError,omitempty"`
}

// Service is the update orchestrator: it ties structure lookup, guards,
// the state transition, aggregation, persistence and reward detection into
// one serialized read-modify-write per (user, lesson).
type Service struct {
	structures   structure.Provider
	repo         Repo
	locker       lock.Locker
	scheduler    *spacedrep.Scheduler
	reward       RewardTrigger
	log          *logger.Logger
	tracer       trace.Tracer
	now          func() time.Time
	maxAttempts  uint
	storeTimeout time.Duration
	backoff      func() backoff.BackOff
}

// Option configures a Service.
type Option func(*Service)

func WithLocker(l lock.Locker) Option { return func(s *Service) { s.locker = l } }

func WithScheduler(sch *spacedrep.Scheduler) Option { return func(s *Service) { s.scheduler = sch } }

func WithRewardTrigger(r RewardTrigger) Option { return func(s *Service) { s.reward = r } }

func WithLogger(l *logger.Logger) Option { return func(s *Service) { s.log = l } }

func WithTracer(t trace.Tracer) Option { return func(s *Service) { s.tracer = t } }

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithMaxAttempts bounds how many times a conflicting write is retried.
func WithMaxAttempts(n uint) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithStoreTimeout bounds a whole read-modify-write cycle, lock wait
// included.
func WithStoreTimeout(d time.Duration) Option { return func(s *Service) { s.storeTimeout = d } }

// NewService creates the orchestrator. Without options it uses an
// in-process key lock, the default scheduler, no reward trigger and a
// no-op logger.
func NewService(structures structure.Provider, repo Repo, opts ...Option) *Service {
	s := &Service{
		structures:  structures,
		repo:        repo,
		locker:      lock.NewKeyedMutex(),
		scheduler:   spacedrep.NewScheduler(spacedrep.DefaultParams(), nil),
		log:         logger.Nop(),
		tracer:      otel.Tracer("github.com/abhisek/atomastery/internal/mastery"),
		now:         time.Now,
		maxAttempts: 5,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 5 * time.Millisecond
			b.MaxInterval = 250 * time.Millisecond
			return b
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ApplyElementUpdate applies an observed score to one element, or to
// every element when ElementID is structure.AllElements. Bulk updates set
// scores directly and skip the guards and the scheduler.
func (s *Service) ApplyElementUpdate(ctx context.Context, u Update) (*Result, error) {
	if err := validateKey(u.UserID, u.LessonID, u.ElementID); err != nil {
		return nil, err
	}
	if u.Score < 0 || u.Score > 100 {
		return nil, invalid("score", "%d is outside 0-100", u.Score)
	}
	target := func(map[string]spacedrep.State) int { return u.Score }
	return s.apply(ctx, "mastery.ApplyElementUpdate", u.UserID, u.LessonID, u.ElementID, u.Reason, target)
}

// ApplyElementDelta adds Delta to the element's stored score (clamped to
// 0-100) and applies the result like ApplyElementUpdate.
func (s *Service) ApplyElementDelta(ctx context.Context, d Delta) (*Result, error) {
	if err := validateKey(d.UserID, d.LessonID, d.ElementID); err != nil {
		return nil, err
	}
	if d.ElementID == structure.AllElements {
		return nil, invalid("elementId", "deltas apply to a single element")
	}
	target := func(stored map[string]spacedrep.State) int {
		return clampScore(stored[d.ElementID].Score + d.Delta)
	}
	return s.apply(ctx, "mastery.ApplyElementDelta", d.UserID, d.LessonID, d.ElementID, d.Reason, target)
}

// Record returns the stored record, or an empty one if the user has no
// history for the lesson.
func (s *Service) Record(ctx context.Context, userID, lessonID string) (*Record, error) {
	if err := validateLesson(userID, lessonID); err != nil {
		return nil, err
	}
	data, err := s.repo.Get(ctx, userID, lessonID)
	if err != nil {
		return nil, &PersistenceError{Op: "read mastery record", Err: err}
	}
	rec, _ := recordFromData(data, userID, lessonID)
	return rec, nil
}

// DueElement is an element whose review date has passed.
type DueElement struct {
	ElementID   string                 `json:"elementId"`
	Score       int                    `json:"score"`
	NextReview  time.Time              `json:"nextReview"`
	OverdueDays float64                `json:"overdueDays"`
	Review      spacedrep.ReviewStatus `json:"review"`
}

// DueElements lists a user's elements due for review at now, most overdue
// first.
func (s *Service) DueElements(ctx context.Context, userID, lessonID string, now time.Time) ([]DueElement, error) {
	rec, err := s.Record(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}
	var due []DueElement
	for id, st := range rec.Elements {
		if !st.IsDue(now) {
			continue
		}
		due = append(due, DueElement{
			ElementID:   id,
			Score:       st.Score,
			NextReview:  *st.NextReview,
			OverdueDays: st.OverdueDays(now),
			Review:      st.Status(now),
		})
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].OverdueDays != due[j].OverdueDays {
			return due[i].OverdueDays > due[j].OverdueDays
		}
		return due[i].ElementID < due[j].ElementID
	})
	return due, nil
}

// Structure exposes the lesson structure used for updates.
func (s *Service) Structure(ctx context.Context, lessonID string) (*structure.Lesson, error) {
	return s.structure(ctx, lessonID)
}

// commit is one successfully persisted attempt.
type commit struct {
	before  int
	after   *Record
	guard   *GuardResult
	applied int
}

func (s *Service) apply(ctx context.Context, op, userID, lessonID, elementID, reason string, target func(map[string]spacedrep.State) int) (res *Result, err error) {
	ctx, span := s.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("mastery.lesson_id", lessonID),
		attribute.String("mastery.element_id", elementID),
		attribute.String("mastery.reason", reason),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	log := s.log.With("user_id", userID, "lesson_id", lessonID, "element_id", elementID)

	lesson, err := s.structure(ctx, lessonID)
	if errors.Is(err, ErrStructureMissing) {
		log.Info("lesson has no structure; mastery update skipped")
		span.SetAttributes(attribute.String("mastery.outcome", string(OutcomeStructureMissing)))
		return &Result{Outcome: OutcomeStructureMissing}, nil
	}
	if err != nil {
		return nil, err
	}

	var el structure.Element
	if elementID != structure.AllElements {
		e, ok := lesson.Element(elementID)
		if !ok {
			return nil, invalid("elementId", "%q is not part of lesson %q", elementID, lessonID)
		}
		el = e
	}

	c, err := s.serialized(ctx, userID, lessonID, func(ctx context.Context) (*commit, error) {
		return s.attempt(ctx, log, lesson, el, elementID, reason, userID, lessonID, target)
	})
	if err != nil {
		log.Warn("mastery update failed", "error", err)
		return nil, err
	}

	res = &Result{
		Outcome:         OutcomeApplied,
		GlobalMastery:   c.after.GlobalMastery,
		Status:          c.after.Status,
		PreviousMastery: c.before,
		AppliedScore:    c.applied,
		Guard:           c.guard,
	}
	span.SetAttributes(
		attribute.Int("mastery.global_before", c.before),
		attribute.Int("mastery.global_after", c.after.GlobalMastery),
	)
	log.Debug("mastery updated",
		"from", c.before, "to", c.after.GlobalMastery, "status", c.after.Status, "version", c.after.Version)

	// The committed before/after pair belongs to exactly one writer, so at
	// most one caller sees each crossing.
	if c.before < CompletionThreshold && c.after.GlobalMastery >= CompletionThreshold {
		s.fireReward(ctx, log, userID, lessonID, c.after.GlobalMastery, res)
	}
	return res, nil
}

// serialized runs fn under the key lock, retrying from scratch on version
// conflicts.
func (s *Service) serialized(ctx context.Context, userID, lessonID string, fn func(context.Context) (*commit, error)) (*commit, error) {
	if s.storeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.storeTimeout)
		defer cancel()
	}

	release, err := s.locker.Lock(ctx, lockKey(userID, lessonID))
	if err != nil {
		if isContextErr(err) {
			return nil, fmt.Errorf("%w: waiting for record lock: %w", ErrTransientFailure, err)
		}
		return nil, &PersistenceError{Op: "acquire record lock", Err: err}
	}
	defer release()

	c, err := backoff.Retry(ctx, func() (*commit, error) { return fn(ctx) },
		backoff.WithBackOff(s.backoff()),
		backoff.WithMaxTries(s.maxAttempts),
	)
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}
	switch {
	case err == nil:
		return c, nil
	case errors.Is(err, ErrPersistence):
		return nil, err
	case errors.Is(err, store.ErrRecordConflict):
		return nil, fmt.Errorf("%w: gave up after %d attempts: %w", ErrTransientFailure, s.maxAttempts, err)
	case isContextErr(err):
		return nil, fmt.Errorf("%w: %w", ErrTransientFailure, err)
	default:
		return nil, &PersistenceError{Op: "update mastery record", Err: err}
	}
}

func (s *Service) attempt(ctx context.Context, log *logger.Logger, lesson *structure.Lesson, el structure.Element, elementID, reason, userID, lessonID string, target func(map[string]spacedrep.State) int) (*commit, error) {
	data, err := s.repo.Get(ctx, userID, lessonID)
	if err != nil {
		return nil, backoff.Permanent(&PersistenceError{Op: "read mastery record", Err: err})
	}
	rec, legacy := recordFromData(data, userID, lessonID)
	if legacy > 0 {
		log.Debug("upgraded legacy element states", "count", legacy)
	}

	before, beforeStatus := rec.GlobalMastery, rec.Status
	now := s.now()
	requested := target(rec.Elements)

	c := &commit{before: before, after: rec, applied: requested}
	if elementID == structure.AllElements {
		p := s.scheduler.Params()
		for _, e := range lesson.Elements {
			st, ok := rec.Elements[e.ID]
			if !ok {
				st = spacedrep.State{Stability: p.MinStability, Difficulty: p.InitialDifficulty}
			}
			st.Score = requested
			rec.Elements[e.ID] = st
		}
	} else {
		g := Guard(requested, el, lesson, rec.Elements, reason)
		if g.Damped || g.Gated {
			log.Info("guard clamped score", "requested", g.Requested, "applied", g.Score, "damped", g.Damped, "gated", g.Gated)
		}
		var prev *spacedrep.State
		if old, ok := rec.Elements[el.ID]; ok {
			prev = &old
		}
		rec.Elements[el.ID] = s.scheduler.Next(prev, g.Score, now)
		c.guard = &g
		c.applied = g.Score
	}

	rec.GlobalMastery = Aggregate(lesson, rec.Elements)
	rec.Status = DeriveStatus(beforeStatus, rec.GlobalMastery, rec.Elements)
	rec.LastUpdated = now

	out := rec.toData()
	err = s.repo.Save(ctx, out, rec.Version, store.MasteryEventData{
		UserID:         userID,
		LessonID:       lessonID,
		ElementID:      elementID,
		Reason:         reason,
		RequestedScore: requested,
		AppliedScore:   c.applied,
		FromMastery:    before,
		ToMastery:      rec.GlobalMastery,
		FromStatus:     string(beforeStatus),
		ToStatus:       string(rec.Status),
	})
	switch {
	case errors.Is(err, store.ErrRecordConflict):
		log.Debug("record version conflict; retrying", "version", rec.Version)
		return nil, err
	case err != nil:
		return nil, backoff.Permanent(&PersistenceError{Op: "save mastery record", Err: err})
	}
	rec.Version = out.Version
	return c, nil
}

// fireReward invokes the reward trigger. The mastery change is already
// committed, so a trigger failure is logged and reported, not returned.
func (s *Service) fireReward(ctx context.Context, log *logger.Logger, userID, lessonID string, finalScore int, res *Result) {
	if s.reward == nil {
		return
	}
	out, err := s.reward.OnMasteryAchieved(ctx, userID, lessonID, finalScore)
	if err != nil {
		log.Error("reward trigger failed", "final_score", finalScore, "error", err)
		res.RewardError = err.Error()
		return
	}
	res.Reward = out
	log.Info("mastery achieved", "final_score", finalScore)
}

func (s *Service) structure(ctx context.Context, lessonID string) (*structure.Lesson, error) {
	l, err := s.structures.Structure(ctx, lessonID)
	switch {
	case errors.Is(err, structure.ErrNotFound):
		return nil, ErrStructureMissing
	case err != nil:
		return nil, &PersistenceError{Op: "fetch lesson structure", Err: err}
	case l == nil || len(l.Elements) == 0:
		return nil, ErrStructureMissing
	}
	return l, nil
}

func validateLesson(userID, lessonID string) error {
	switch {
	case userID == "":
		return invalid("userId", "must not be empty")
	case lessonID == "":
		return invalid("lessonId", "must not be empty")
	}
	return nil
}

func validateKey(userID, lessonID, elementID string) error {
	if err := validateLesson(userID, lessonID); err != nil {
		return err
	}
	if elementID == "" {
		return invalid("elementId", "must not be empty")
	}
	return nil
}

func lockKey(userID, lessonID string) string {
	return "mastery:" + userID + ":" + lessonID
}

func isContextErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
