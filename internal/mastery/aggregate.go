package mastery

import (
	"math"

	"github.com/abhisek/atomastery/internal/spacedrep"
	"github.com/abhisek/atomastery/internal/structure"
)

// Aggregate computes lesson mastery as the weight-averaged element score,
// rounded half away from zero. Elements missing from states count as 0.
// States for elements outside the lesson are ignored.
func Aggregate(lesson *structure.Lesson, states map[string]spacedrep.State) int {
	var sum, total float64
	for _, el := range lesson.Elements {
		w := math.Max(0, el.Weight)
		sum += float64(clampScore(states[el.ID].Score)) * w
		total += w
	}
	if total == 0 {
		return 0
	}
	return clampScore(int(math.Round(sum / total)))
}

// DeriveStatus computes a lesson's status. Completed is sticky. Started
// means at least one element has been reviewed, so scores set by a bulk
// update alone (reps stay 0) leave the lesson not started.
func DeriveStatus(prev Status, global int, states map[string]spacedrep.State) Status {
	if prev == StatusCompleted || global >= CompletionThreshold {
		return StatusCompleted
	}
	for _, st := range states {
		if st.Reps > 0 {
			return StatusStarted
		}
	}
	return StatusNotStarted
}
