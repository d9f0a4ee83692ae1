package mastery

import (
	"time"

	"github.com/abhisek/atomastery/internal/spacedrep"
	"github.com/abhisek/atomastery/internal/store"
)

// Record is a user's mastery of one lesson.
type Record struct {
	UserID        string                     `json:"userId"`
	LessonID      string                     `json:"lessonId"`
	Elements      map[string]spacedrep.State `json:"elements"`
	GlobalMastery int                        `json:"globalMastery"`
	Status        Status                     `json:"status"`
	Version       int64                      `json:"version"`
	LastUpdated   time.Time                  `json:"lastUpdated"`
}

// newRecord is the starting point for a (user, lesson) pair with no history.
func newRecord(userID, lessonID string) *Record {
	return &Record{
		UserID:   userID,
		LessonID: lessonID,
		Elements: make(map[string]spacedrep.State),
		Status:   StatusNotStarted,
	}
}

// recordFromData converts the stored form. Legacy element values have
// already been upgraded by the store; legacy reports how many were.
func recordFromData(d *store.MasteryRecordData, userID, lessonID string) (rec *Record, legacy int) {
	if d == nil {
		return newRecord(userID, lessonID), 0
	}
	rec = &Record{
		UserID:        d.UserID,
		LessonID:      d.LessonID,
		Elements:      make(map[string]spacedrep.State, len(d.Elements)),
		GlobalMastery: clampScore(d.GlobalMastery),
		Status:        parseStatus(d.Status),
		Version:       d.Version,
		LastUpdated:   d.LastUpdated,
	}
	for id, e := range d.Elements {
		if e.Legacy {
			legacy++
		}
		rec.Elements[id] = spacedrep.State{
			Score:      clampScore(e.Score),
			Stability:  e.Stability,
			Difficulty: e.Difficulty,
			Reps:       e.Reps,
			LastReview: e.LastReview,
			NextReview: e.NextReview,
		}
	}
	return rec, legacy
}

// toData converts to the stored form. The result always uses the current
// element shape.
func (r *Record) toData() *store.MasteryRecordData {
	d := &store.MasteryRecordData{
		UserID:        r.UserID,
		LessonID:      r.LessonID,
		Elements:      make(map[string]store.ElementStateData, len(r.Elements)),
		GlobalMastery: r.GlobalMastery,
		Status:        string(r.Status),
		Version:       r.Version,
		LastUpdated:   r.LastUpdated,
	}
	for id, st := range r.Elements {
		d.Elements[id] = store.ElementStateData{
			Score:      st.Score,
			Stability:  st.Stability,
			Difficulty: st.Difficulty,
			Reps:       st.Reps,
			LastReview: st.LastReview,
			NextReview: st.NextReview,
		}
	}
	return d
}
