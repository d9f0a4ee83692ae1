package spacedrep

import (
	"math"
	"math/rand/v2"
	"time"
)

// Rand is the jitter source for scheduling. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// GlobalRand draws from the math/rand/v2 top-level source.
var GlobalRand Rand = globalRand{}

// NewSeededRand returns a deterministic source for reproducible schedules.
func NewSeededRand(seed uint64) Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

const day = 24 * time.Hour

// Scheduler computes element state transitions.
type Scheduler struct {
	params Params
	rng    Rand
}

// NewScheduler creates a scheduler. A nil rng uses GlobalRand.
func NewScheduler(params Params, rng Rand) *Scheduler {
	if rng == nil {
		rng = GlobalRand
	}
	return &Scheduler{params: params, rng: rng}
}

// Params returns the scheduler's constant table.
func (s *Scheduler) Params() Params {
	return s.params
}

// Next computes the new state of an element after observing score at now.
// old may be nil for an element with no history. score must already be
// clamped to 0-100; it is clamped again here so the function is total.
func (s *Scheduler) Next(old *State, score int, now time.Time) State {
	p := s.params
	score = clampInt(score, 0, 100)
	rating := RatingFor(score)

	prev := State{Difficulty: p.InitialDifficulty}
	if old != nil {
		prev = *old
	}

	var stability, difficulty float64
	if prev.Reps == 0 {
		difficulty = clamp(p.InitialDifficulty-float64(rating-RatingGood), p.MinDifficulty, p.MaxDifficulty)
		stability = p.InitialStability[rating]
	} else {
		elapsed := 0.0
		if prev.LastReview != nil {
			elapsed = math.Max(0, now.Sub(*prev.LastReview).Hours()/24.0)
		}

		difficulty = prev.Difficulty - 0.8 + 0.004*float64(RatingEasy-rating)
		if rating == RatingFail {
			difficulty += 2
		}
		difficulty = clamp(difficulty, p.MinDifficulty, p.MaxDifficulty)

		// Legacy records carry stability 0.
		st := clamp(prev.Stability, p.MinStability, p.MaxStability)
		if rating > RatingFail {
			growth := math.Exp(p.W9) * (11 - difficulty) * math.Pow(st, -p.W10) *
				(math.Exp(float64(1-rating)*p.W11) - 1)
			stability = st * (1 + growth + (elapsed/st)*0.5)
		} else {
			stability = 0.5 * math.Pow(difficulty, -0.5) * math.Pow(st, 0.1)
		}
	}
	stability = clamp(stability, p.MinStability, p.MaxStability)

	fuzz := (s.rng.Float64()*2 - 1) * p.Fuzz
	interval := math.Max(p.MinIntervalDays, stability*(1+fuzz))
	next := now.Add(time.Duration(interval * float64(day)))
	last := now

	return State{
		Score:      score,
		Stability:  stability,
		Difficulty: difficulty,
		Reps:       prev.Reps + 1,
		LastReview: &last,
		NextReview: &next,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func clampInt(v, lo, hi int) int {
	return min(hi, max(lo, v))
}
