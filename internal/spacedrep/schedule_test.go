package spacedrep

import "testing"

func TestRatingFor(t *testing.T) {
	tests := []struct {
		score int
		want  Rating
	}{
		{0, RatingFail},
		{59, RatingFail},
		{60, RatingHard},
		{79, RatingHard},
		{80, RatingGood},
		{94, RatingGood},
		{95, RatingEasy},
		{100, RatingEasy},
	}
	for _, tt := range tests {
		if got := RatingFor(tt.score); got != tt.want {
			t.Errorf("RatingFor(%d) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestDefaultParams_InitialStability(t *testing.T) {
	p := DefaultParams()
	expected := map[Rating]float64{RatingFail: 0.5, RatingHard: 1, RatingGood: 3, RatingEasy: 7}
	for r, v := range expected {
		if p.InitialStability[r] != v {
			t.Errorf("InitialStability[%v] = %g, want %g", r, p.InitialStability[r], v)
		}
	}
}

func TestDefaultParams_Bounds(t *testing.T) {
	p := DefaultParams()
	if p.MinStability != 0.5 || p.MaxStability != 365 {
		t.Errorf("stability bounds = [%g, %g], want [0.5, 365]", p.MinStability, p.MaxStability)
	}
	if p.MinDifficulty != 1 || p.MaxDifficulty != 10 {
		t.Errorf("difficulty bounds = [%g, %g], want [1, 10]", p.MinDifficulty, p.MaxDifficulty)
	}
	if p.W11 >= 0 {
		t.Errorf("W11 = %g, must be negative", p.W11)
	}
}

func TestRatingString(t *testing.T) {
	if RatingEasy.String() != "easy" || Rating(9).String() != "unknown" {
		t.Error("unexpected rating labels")
	}
}
