package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrRecordConflict is returned by RecordRepo.Save when the stored version
// no longer matches the version the caller read.
var ErrRecordConflict = errors.New("mastery record version conflict")

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To
}

// MasteryRecordData is the persisted shape of a per-user, per-lesson
// mastery record.
type MasteryRecordData struct {
	UserID        string
	LessonID      string
	Elements      map[string]ElementStateData
	GlobalMastery int
	Status        string
	// Version is 0 for a record that has never been saved.
	Version     int64
	LastUpdated time.Time
}

// elementStateVersion is written into every element state. Older rows hold a
// bare number instead of an object.
const elementStateVersion = 2

// ElementStateData is the storage form of one element's scheduling state.
//
// On disk it is a tagged union: a bare JSON number is the legacy shape and
// decodes to {score: n, stability: 0, difficulty: 5, reps: 1} with Legacy
// set; an object is the current shape. Marshal always emits the current
// shape, so legacy values are upgraded the next time a record is saved.
type ElementStateData struct {
	Score      int        `json:"score"`
	Stability  float64    `json:"stability"`
	Difficulty float64    `json:"difficulty"`
	Reps       int        `json:"reps"`
	LastReview *time.Time `json:"lastReview,omitempty"`
	NextReview *time.Time `json:"nextReview,omitempty"`

	Legacy bool `json:"-"`
}

type elementStateV2 struct {
	V          int        `json:"v"`
	Score      int        `json:"score"`
	Stability  float64    `json:"stability"`
	Difficulty float64    `json:"difficulty"`
	Reps       int        `json:"reps"`
	LastReview *time.Time `json:"lastReview,omitempty"`
	NextReview *time.Time `json:"nextReview,omitempty"`
}

func (e ElementStateData) MarshalJSON() ([]byte, error) {
	return json.Marshal(elementStateV2{
		V:          elementStateVersion,
		Score:      e.Score,
		Stability:  e.Stability,
		Difficulty: e.Difficulty,
		Reps:       e.Reps,
		LastReview: e.LastReview,
		NextReview: e.NextReview,
	})
}

func (e *ElementStateData) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		f, err := n.Float64()
		if err != nil {
			return fmt.Errorf("legacy element score %q: %w", n, err)
		}
		*e = ElementStateData{
			Score:      clampScore(int(math.Round(f))),
			Stability:  0,
			Difficulty: 5,
			Reps:       1,
			Legacy:     true,
		}
		return nil
	}

	var v elementStateV2
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("decode element state: %w", err)
	}
	*e = ElementStateData{
		Score:      v.Score,
		Stability:  v.Stability,
		Difficulty: v.Difficulty,
		Reps:       v.Reps,
		LastReview: v.LastReview,
		NextReview: v.NextReview,
	}
	return nil
}

func clampScore(n int) int {
	return min(100, max(0, n))
}

// MasteryEventData captures a single applied mastery update.
type MasteryEventData struct {
	UserID         string
	LessonID       string
	ElementID      string // element ID or "ALL"
	Reason         string
	RequestedScore int
	AppliedScore   int
	FromMastery    int
	ToMastery      int
	FromStatus     string
	ToStatus       string
}

// MasteryEventRecord is a mastery event read back from the log.
type MasteryEventRecord struct {
	MasteryEventData
	Sequence  int64
	Timestamp time.Time
}

// GemEventData captures a reward granted for mastering a lesson.
type GemEventData struct {
	RewardID   string
	UserID     string
	LessonID   string
	GemType    string
	Rarity     string
	FinalScore int
	Coins      int
}

// GemEventRecord is a gem event read back from the log.
type GemEventRecord struct {
	GemEventData
	Sequence  int64
	Timestamp time.Time
}

// QuestionData is a stored question with its answer key.
type QuestionData struct {
	ID            string
	LessonID      string
	AtomID        string
	WidgetType    string
	CorrectAnswer json.RawMessage
}
