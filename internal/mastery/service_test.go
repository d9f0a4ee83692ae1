package mastery

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/atomastery/internal/spacedrep"
	"github.com/abhisek/atomastery/internal/store"
	"github.com/abhisek/atomastery/internal/structure"
)

// memRepo is an in-memory Repo with the store's compare-and-swap contract.
// Records round-trip through JSON like the sqlite store.
type memRepo struct {
	mu        sync.Mutex
	records   map[string][]byte
	versions  map[string]int64
	events    []store.MasteryEventData
	conflicts int   // next N saves fail with ErrRecordConflict
	saveErr   error // every save fails with this
	getErr    error
}

func newMemRepo() *memRepo {
	return &memRepo{records: map[string][]byte{}, versions: map[string]int64{}}
}

func (m *memRepo) Get(_ context.Context, userID, lessonID string) (*store.MasteryRecordData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	raw, ok := m.records[userID+"/"+lessonID]
	if !ok {
		return nil, nil
	}
	var d store.MasteryRecordData
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	d.Version = m.versions[userID+"/"+lessonID]
	return &d, nil
}

func (m *memRepo) Save(_ context.Context, rec *store.MasteryRecordData, expected int64, ev store.MasteryEventData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if m.conflicts > 0 {
		m.conflicts--
		return store.ErrRecordConflict
	}
	key := rec.UserID + "/" + rec.LessonID
	if m.versions[key] != expected {
		return store.ErrRecordConflict
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	m.records[key] = raw
	m.versions[key] = expected + 1
	rec.Version = expected + 1
	m.events = append(m.events, ev)
	return nil
}

// put stores raw elements JSON directly, as an older writer would have.
func (m *memRepo) put(userID, lessonID string, rec store.MasteryRecordData, elements string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, _ := json.Marshal(rec)
	var obj map[string]json.RawMessage
	_ = json.Unmarshal(raw, &obj)
	obj["Elements"] = json.RawMessage(elements)
	raw, _ = json.Marshal(obj)
	m.records[userID+"/"+lessonID] = raw
	m.versions[userID+"/"+lessonID] = 1
}

type countingTrigger struct {
	calls  atomic.Int32
	scores []int
	mu     sync.Mutex
	err    error
}

func (c *countingTrigger) OnMasteryAchieved(_ context.Context, _, _ string, finalScore int) (*RewardOutcome, error) {
	c.calls.Add(1)
	c.mu.Lock()
	c.scores = append(c.scores, finalScore)
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return &RewardOutcome{RewardGranted: true, CoinsAdded: 50}, nil
}

type noLock struct{}

func (noLock) Lock(context.Context, string) (func(), error) { return func() {}, nil }

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

var testNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, repo Repo, lessons structure.StaticProvider, opts ...Option) (*Service, *countingTrigger) {
	t.Helper()
	trig := &countingTrigger{}
	base := []Option{
		WithRewardTrigger(trig),
		WithScheduler(spacedrep.NewScheduler(spacedrep.DefaultParams(), fixedRand(0.5))),
		WithClock(func() time.Time { return testNow }),
	}
	s := NewService(lessons, repo, append(base, opts...)...)
	s.backoff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return s, trig
}

func lessons(ls ...*structure.Lesson) structure.StaticProvider {
	p := structure.StaticProvider{}
	for _, l := range ls {
		p[l.ID] = l
	}
	return p
}

func singleElementLesson() *structure.Lesson {
	return &structure.Lesson{ID: "solo", Elements: []structure.Element{{ID: "X", Title: "X", Weight: 1, Order: 1}}}
}

func TestApplyElementUpdate_EndToEnd(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "e2e.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	svc, trig := newTestService(t, st.RecordRepo(), lessons(twoElementLesson()))
	ctx := context.Background()
	upd := func(el string, score int, reason string) *Result {
		t.Helper()
		res, err := svc.ApplyElementUpdate(ctx, Update{UserID: "u1", LessonID: "l1", ElementID: el, Score: score, Reason: reason})
		require.NoError(t, err)
		require.Equal(t, OutcomeApplied, res.Outcome)
		return res
	}

	res := upd("B", 90, "")
	assert.Equal(t, 25, res.GlobalMastery)
	assert.Equal(t, StatusStarted, res.Status)
	assert.Equal(t, 50, res.AppliedScore)
	assert.True(t, res.Guard.Gated)

	res = upd("A", 90, "")
	assert.Equal(t, 70, res.GlobalMastery)
	rec, err := svc.Record(ctx, "u1", "l1")
	require.NoError(t, err)
	a := rec.Elements["A"]
	assert.Equal(t, 90, a.Score)
	assert.Equal(t, 1, a.Reps)
	assert.Equal(t, 3.0, a.Stability) // 90 rates Good
	assert.True(t, a.NextReview.After(testNow))

	res = upd("B", 90, ReasonQuizPerfect)
	assert.Equal(t, 90, res.GlobalMastery)
	assert.Equal(t, StatusStarted, res.Status)
	assert.False(t, res.Guard.Gated)
	assert.False(t, res.Guard.Damped)
	assert.Nil(t, res.Reward)
	assert.Zero(t, trig.calls.Load())

	res = upd(structure.AllElements, 100, "")
	assert.Equal(t, 100, res.GlobalMastery)
	assert.Equal(t, StatusCompleted, res.Status)
	require.NotNil(t, res.Reward)
	assert.True(t, res.Reward.RewardGranted)
	assert.EqualValues(t, 1, trig.calls.Load())
	assert.Equal(t, []int{100}, trig.scores)

	events, err := st.EventRepo().QueryMasteryEvents(ctx, "u1", "l1", store.QueryOpts{})
	require.NoError(t, err)
	assert.Len(t, events, 4)
	assert.Equal(t, "ALL", events[0].ElementID)
	assert.Equal(t, "completed", events[0].ToStatus)
}

func TestApplyElementUpdate_RewardFiresOncePerCrossing(t *testing.T) {
	repo := newMemRepo()
	svc, trig := newTestService(t, repo, lessons(singleElementLesson()))
	ctx := context.Background()

	for _, v := range []int{94, 96, 94, 97, 99} {
		_, err := svc.ApplyElementUpdate(ctx, Update{UserID: "u", LessonID: "solo", ElementID: structure.AllElements, Score: v})
		require.NoError(t, err)
	}
	assert.EqualValues(t, 2, trig.calls.Load())
	assert.Equal(t, []int{96, 97}, trig.scores)

	rec, err := svc.Record(ctx, "u", "solo")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, rec.Status, "completed must not regress")
	assert.Equal(t, 99, rec.GlobalMastery)
}

func TestApplyElementUpdate_BulkIdempotent(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestService(t, repo, lessons(twoElementLesson()))
	ctx := context.Background()

	_, err := svc.ApplyElementUpdate(ctx, Update{UserID: "u", LessonID: "l1", ElementID: "A", Score: 40})
	require.NoError(t, err)

	bulk := Update{UserID: "u", LessonID: "l1", ElementID: structure.AllElements, Score: 70}
	first, err := svc.ApplyElementUpdate(ctx, bulk)
	require.NoError(t, err)
	once, err := svc.Record(ctx, "u", "l1")
	require.NoError(t, err)

	second, err := svc.ApplyElementUpdate(ctx, bulk)
	require.NoError(t, err)
	twice, err := svc.Record(ctx, "u", "l1")
	require.NoError(t, err)

	assert.Equal(t, first.GlobalMastery, second.GlobalMastery)
	assert.Equal(t, once.Elements, twice.Elements)
	assert.Equal(t, once.Status, twice.Status)
	assert.Equal(t, 70, twice.GlobalMastery)
}

// Bulk updates set scores without reviewing anything, so reps stay 0 and
// the lesson is not started until a single-element update lands.
func TestApplyElementUpdate_BulkDoesNotStartLesson(t *testing.T) {
	svc, _ := newTestService(t, newMemRepo(), lessons(twoElementLesson()))
	ctx := context.Background()

	res, err := svc.ApplyElementUpdate(ctx, Update{UserID: "u", LessonID: "l1", ElementID: structure.AllElements, Score: 60})
	require.NoError(t, err)
	assert.Equal(t, 60, res.GlobalMastery)
	assert.Equal(t, StatusNotStarted, res.Status)

	res, err = svc.ApplyElementUpdate(ctx, Update{UserID: "u", LessonID: "l1", ElementID: "A", Score: 60})
	require.NoError(t, err)
	assert.Equal(t, StatusStarted, res.Status)
}

func TestApplyElementUpdate_GatingHoldsAcrossUpdates(t *testing.T) {
	svc, _ := newTestService(t, newMemRepo(), lessons(twoElementLesson()))
	ctx := context.Background()

	for _, reason := range []string{"", ReasonQuizPerfect, ReasonQuizPerfect} {
		res, err := svc.ApplyElementUpdate(ctx, Update{UserID: "u", LessonID: "l1", ElementID: "B", Score: 100, Reason: reason})
		require.NoError(t, err)
		assert.LessOrEqual(t, res.AppliedScore, GatedCeiling)
	}
	rec, err := svc.Record(ctx, "u", "l1")
	require.NoError(t, err)
	assert.Equal(t, 50, rec.Elements["B"].Score)
}

func TestApplyElementUpdate_Damping(t *testing.T) {
	svc, _ := newTestService(t, newMemRepo(), lessons(twoElementLesson()))
	ctx := context.Background()

	for _, user := range []string{"u", "u2"} {
		_, err := svc.ApplyElementUpdate(ctx, Update{UserID: user, LessonID: "l1", ElementID: "A", Score: 20})
		require.NoError(t, err)
	}

	res, err := svc.ApplyElementUpdate(ctx, Update{UserID: "u", LessonID: "l1", ElementID: "A", Score: 100})
	require.NoError(t, err)
	assert.Equal(t, 80, res.AppliedScore)
	assert.True(t, res.Guard.Damped)

	res, err = svc.ApplyElementUpdate(ctx, Update{UserID: "u2", LessonID: "l1", ElementID: "A", Score: 100, Reason: ReasonQuizPerfect})
	require.NoError(t, err)
	assert.Equal(t, 100, res.AppliedScore)
	assert.False(t, res.Guard.Damped)
}

func TestApplyElementUpdate_InvalidInput(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestService(t, repo, lessons(twoElementLesson()))
	ctx := context.Background()

	cases := []Update{
		{UserID: "u", LessonID: "l1", ElementID: "A", Score: 101},
		{UserID: "u", LessonID: "l1", ElementID: "A", Score: -1},
		{UserID: "u", LessonID: "l1", ElementID: "nope", Score: 50},
		{UserID: "", LessonID: "l1", ElementID: "A", Score: 50},
		{UserID: "u", LessonID: "l1", ElementID: "", Score: 50},
	}
	for _, u := range cases {
		_, err := svc.ApplyElementUpdate(ctx, u)
		assert.ErrorIs(t, err, ErrInvalidInput, "%+v", u)
		var ie *InputError
		assert.True(t, errors.As(err, &ie))
	}
	_, err := svc.ApplyElementDelta(ctx, Delta{UserID: "u", LessonID: "l1", ElementID: structure.AllElements, Delta: 10})
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Empty(t, repo.events, "rejected input must not touch state")
}

func TestRecord_Validation(t *testing.T) {
	svc, _ := newTestService(t, newMemRepo(), lessons(twoElementLesson()))
	ctx := context.Background()

	_, err := svc.Record(ctx, "", "l1")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Record(ctx, "u", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	rec, err := svc.Record(ctx, "u", "l1")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.GlobalMastery)
	assert.Equal(t, StatusNotStarted, rec.Status)
}

func TestApplyElementUpdate_StructureMissing(t *testing.T) {
	repo := newMemRepo()
	empty := &structure.Lesson{ID: "empty"}
	svc, trig := newTestService(t, repo, lessons(empty))

	for _, id := range []string{"unknown", "empty"} {
		res, err := svc.ApplyElementUpdate(context.Background(), Update{UserID: "u", LessonID: id, ElementID: "A", Score: 100})
		require.NoError(t, err)
		assert.Equal(t, OutcomeStructureMissing, res.Outcome)
	}
	assert.Empty(t, repo.events)
	assert.Zero(t, trig.calls.Load())
}

func TestApplyElementUpdate_RetriesConflicts(t *testing.T) {
	repo := newMemRepo()
	repo.conflicts = 2
	svc, _ := newTestService(t, repo, lessons(singleElementLesson()), WithMaxAttempts(3))

	res, err := svc.ApplyElementUpdate(context.Background(), Update{UserID: "u", LessonID: "solo", ElementID: "X", Score: 40})
	require.NoError(t, err)
	assert.Equal(t, 40, res.GlobalMastery)
	assert.Len(t, repo.events, 1)
}

func TestApplyElementUpdate_ConflictsExhausted(t *testing.T) {
	repo := newMemRepo()
	repo.conflicts = 10
	svc, trig := newTestService(t, repo, lessons(singleElementLesson()), WithMaxAttempts(3))

	_, err := svc.ApplyElementUpdate(context.Background(), Update{UserID: "u", LessonID: "solo", ElementID: structure.AllElements, Score: 100})
	assert.ErrorIs(t, err, ErrTransientFailure)
	assert.ErrorIs(t, err, store.ErrRecordConflict)
	assert.Equal(t, 7, repo.conflicts, "exactly three attempts")
	assert.Zero(t, trig.calls.Load())
}

func TestApplyElementUpdate_PersistenceFailure(t *testing.T) {
	repo := newMemRepo()
	repo.saveErr = errors.New("disk full")
	svc, trig := newTestService(t, repo, lessons(singleElementLesson()))

	_, err := svc.ApplyElementUpdate(context.Background(), Update{UserID: "u", LessonID: "solo", ElementID: structure.AllElements, Score: 100})
	assert.ErrorIs(t, err, ErrPersistence)
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "save mastery record", pe.Op)
	assert.Zero(t, trig.calls.Load())

	repo.saveErr = nil
	repo.getErr = errors.New("connection reset")
	_, err = svc.ApplyElementUpdate(context.Background(), Update{UserID: "u", LessonID: "solo", ElementID: "X", Score: 10})
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestApplyElementUpdate_RewardErrorDoesNotFailUpdate(t *testing.T) {
	svc, trig := newTestService(t, newMemRepo(), lessons(singleElementLesson()))
	trig.err = errors.New("broker down")

	res, err := svc.ApplyElementUpdate(context.Background(), Update{UserID: "u", LessonID: "solo", ElementID: structure.AllElements, Score: 100})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Nil(t, res.Reward)
	assert.Contains(t, res.RewardError, "broker down")
}

func TestApplyElementDelta_ConcurrentNoLostUpdates(t *testing.T) {
	for name, opts := range map[string][]Option{
		"keyed mutex": nil,
		"cas only":    {WithLocker(noLock{}), WithMaxAttempts(1000)},
	} {
		t.Run(name, func(t *testing.T) {
			repo := newMemRepo()
			svc, trig := newTestService(t, repo, lessons(singleElementLesson()), opts...)

			var wg sync.WaitGroup
			for i := 0; i < 30; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := svc.ApplyElementDelta(context.Background(), Delta{UserID: "u", LessonID: "solo", ElementID: "X", Delta: 5, Reason: ReasonQuiz})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			rec, err := svc.Record(context.Background(), "u", "solo")
			require.NoError(t, err)
			assert.Equal(t, 100, rec.Elements["X"].Score)
			assert.Equal(t, 30, rec.Elements["X"].Reps)
			assert.EqualValues(t, 30, rec.Version)
			assert.EqualValues(t, 1, trig.calls.Load(), "exactly one writer crosses 95")
		})
	}
}

func TestApplyElementUpdate_LegacyRecord(t *testing.T) {
	repo := newMemRepo()
	repo.put("u", "l1", store.MasteryRecordData{UserID: "u", LessonID: "l1", GlobalMastery: 35, Status: "started"},
		`{"A": 70}`)
	svc, _ := newTestService(t, repo, lessons(twoElementLesson()))

	rec, err := svc.Record(context.Background(), "u", "l1")
	require.NoError(t, err)
	assert.Equal(t, spacedrep.State{Score: 70, Stability: 0, Difficulty: 5, Reps: 1}, rec.Elements["A"])

	res, err := svc.ApplyElementUpdate(context.Background(), Update{UserID: "u", LessonID: "l1", ElementID: "A", Score: 80})
	require.NoError(t, err)
	assert.Equal(t, 40, res.GlobalMastery)

	rec, err = svc.Record(context.Background(), "u", "l1")
	require.NoError(t, err)
	a := rec.Elements["A"]
	assert.Equal(t, 2, a.Reps)
	assert.GreaterOrEqual(t, a.Stability, 0.5)
	assert.LessOrEqual(t, a.Stability, 365.0)
}

func TestDueElementsAndSummary(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestService(t, repo, lessons(twoElementLesson()))
	ctx := context.Background()

	_, err := svc.ApplyElementUpdate(ctx, Update{UserID: "u", LessonID: "l1", ElementID: "A", Score: 20})
	require.NoError(t, err)

	due, err := svc.DueElements(ctx, "u", "l1", testNow)
	require.NoError(t, err)
	assert.Empty(t, due)

	later := testNow.Add(10 * 24 * time.Hour)
	due, err = svc.DueElements(ctx, "u", "l1", later)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "A", due[0].ElementID)
	assert.Equal(t, spacedrep.ReviewOverdue, due[0].Review)

	rec, err := svc.Record(ctx, "u", "l1")
	require.NoError(t, err)
	sum := Summarize(twoElementLesson(), rec, later)
	require.Len(t, sum, 2)
	assert.Equal(t, "A", sum[0].ElementID)
	assert.False(t, sum[0].Gated)
	assert.True(t, sum[1].Gated)
	assert.Equal(t, spacedrep.ReviewUnscheduled, sum[1].Review)
}
