package mastery

import (
	"github.com/abhisek/atomastery/internal/spacedrep"
	"github.com/abhisek/atomastery/internal/structure"
)

const (
	// MaxDampedGain is the largest increase a single update may apply to a
	// stored score, unless the update is a perfect quiz.
	MaxDampedGain = 60
	// GateThreshold is the predecessor score below which an element is gated.
	GateThreshold = 30
	// GatedCeiling is the most a gated element can reach.
	GatedCeiling = 50
)

// GuardResult reports the score that survived the guards and which clamps
// fired.
type GuardResult struct {
	Requested int
	Score     int
	Damped    bool
	Gated     bool
}

// Guard applies damping then prerequisite gating to a requested score for
// el, comparing against the stored states. Unrecorded predecessors count
// as 0. It never fails.
func Guard(requested int, el structure.Element, lesson *structure.Lesson, stored map[string]spacedrep.State, reason string) GuardResult {
	res := GuardResult{Requested: requested, Score: clampScore(requested)}

	// A first encounter has no stored score to damp against.
	if old, ok := stored[el.ID]; ok && res.Score-old.Score > MaxDampedGain && reason != ReasonQuizPerfect {
		res.Score = clampScore(old.Score + MaxDampedGain)
		res.Damped = true
	}

	if pred, ok := lesson.Predecessor(el); ok {
		if stored[pred.ID].Score < GateThreshold && res.Score > GatedCeiling {
			res.Score = GatedCeiling
			res.Gated = true
		}
	}
	return res
}

func clampScore(n int) int {
	return min(100, max(0, n))
}
