package spacedrep

// Rating is a 1-4 discretization of a 0-100 score.
type Rating int

const (
	RatingFail Rating = iota + 1
	RatingHard
	RatingGood
	RatingEasy
)

// String returns the rating label.
func (r Rating) String() string {
	switch r {
	case RatingFail:
		return "fail"
	case RatingHard:
		return "hard"
	case RatingGood:
		return "good"
	case RatingEasy:
		return "easy"
	default:
		return "unknown"
	}
}

// Params is the single constant table driving the transition function.
type Params struct {
	// W9, W10 and W11 shape stability growth on a successful review:
	//   S' = S * (1 + e^W9 * (11-D) * S^-W10 * (e^((1-rating)*W11) - 1) + (elapsed/S)*0.5)
	// W11 must be negative so that every successful rating grows stability.
	W9  float64
	W10 float64
	W11 float64

	// InitialStability is the first-encounter stability in days, per rating.
	InitialStability map[Rating]float64

	// InitialDifficulty is assumed for elements with no history.
	InitialDifficulty float64

	MinStability  float64
	MaxStability  float64
	MinDifficulty float64
	MaxDifficulty float64

	// Fuzz is the half-width of the uniform jitter applied to intervals.
	Fuzz float64

	// MinIntervalDays floors the scheduled interval.
	MinIntervalDays float64
}

// DefaultParams returns the canonical parameter set.
func DefaultParams() Params {
	return Params{
		W9:  0.5,
		W10: 0.2,
		W11: -0.25,
		InitialStability: map[Rating]float64{
			RatingFail: 0.5,
			RatingHard: 1,
			RatingGood: 3,
			RatingEasy: 7,
		},
		InitialDifficulty: 5,
		MinStability:      0.5,
		MaxStability:      365,
		MinDifficulty:     1,
		MaxDifficulty:     10,
		Fuzz:              0.05,
		MinIntervalDays:   0.5,
	}
}

// RatingFor maps a score to a rating.
func RatingFor(score int) Rating {
	switch {
	case score >= 95:
		return RatingEasy
	case score >= 80:
		return RatingGood
	case score >= 60:
		return RatingHard
	default:
		return RatingFail
	}
}
