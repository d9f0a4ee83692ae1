package spacedrep

import "time"

// State holds the spaced repetition state for a single element.
type State struct {
	Score      int        `json:"score"`
	Stability  float64    `json:"stability"`
	Difficulty float64    `json:"difficulty"`
	Reps       int        `json:"reps"`
	LastReview *time.Time `json:"lastReview"`
	NextReview *time.Time `json:"nextReview"`
}

// IsDue returns true if the element is due for review (at or past the
// review date). Elements that were never scheduled are not due.
func (s *State) IsDue(now time.Time) bool {
	if s.NextReview == nil {
		return false
	}
	return !now.Before(*s.NextReview)
}

// OverdueDays returns how many days past due the element is. Returns 0 if
// not yet due.
func (s *State) OverdueDays(now time.Time) float64 {
	if !s.IsDue(now) {
		return 0
	}
	return now.Sub(*s.NextReview).Hours() / 24.0
}

// DaysUntilReview returns the number of days until the next review.
// Returns 0 if already due or unscheduled.
func (s *State) DaysUntilReview(now time.Time) int {
	if s.NextReview == nil || s.IsDue(now) {
		return 0
	}
	return int(s.NextReview.Sub(now).Hours()/24.0) + 1
}

// ReviewStatus describes an element's review status for display.
type ReviewStatus string

const (
	ReviewUnscheduled ReviewStatus = "unscheduled"
	ReviewNotDue      ReviewStatus = "not_due"
	ReviewDue         ReviewStatus = "due"
	ReviewOverdue     ReviewStatus = "overdue"
)

// Status returns the review status. An element is overdue once it is past
// its review date by more than half of its stability.
func (s *State) Status(now time.Time) ReviewStatus {
	switch {
	case s.NextReview == nil:
		return ReviewUnscheduled
	case !s.IsDue(now):
		return ReviewNotDue
	case s.OverdueDays(now) > s.Stability*0.5:
		return ReviewOverdue
	default:
		return ReviewDue
	}
}
