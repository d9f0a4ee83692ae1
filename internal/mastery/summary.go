package mastery

import (
	"time"

	"github.com/abhisek/atomastery/internal/spacedrep"
	"github.com/abhisek/atomastery/internal/structure"
)

// ElementSummary is one element's standing within a lesson, in
// prerequisite order.
type ElementSummary struct {
	ElementID  string                 `json:"elementId"`
	Title      string                 `json:"title"`
	Order      int                    `json:"order"`
	Weight     float64                `json:"weight"`
	Score      int                    `json:"score"`
	Reps       int                    `json:"reps"`
	Gated      bool                   `json:"gated"`
	Review     spacedrep.ReviewStatus `json:"review"`
	NextReview *time.Time             `json:"nextReview,omitempty"`
}

// Summarize lays the record's element states over the lesson structure.
// An element is gated while its predecessor scores below GateThreshold.
func Summarize(lesson *structure.Lesson, rec *Record, now time.Time) []ElementSummary {
	out := make([]ElementSummary, 0, len(lesson.Elements))
	for _, el := range lesson.Sorted() {
		st := rec.Elements[el.ID]
		sum := ElementSummary{
			ElementID:  el.ID,
			Title:      el.Title,
			Order:      el.Order,
			Weight:     el.Weight,
			Score:      st.Score,
			Reps:       st.Reps,
			Review:     st.Status(now),
			NextReview: st.NextReview,
		}
		if pred, ok := lesson.Predecessor(el); ok {
			sum.Gated = rec.Elements[pred.ID].Score < GateThreshold
		}
		out = append(out, sum)
	}
	return out
}
