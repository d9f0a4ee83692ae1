package gems

// Rarity represents the tier of a gem.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// AllRarities returns all rarities in order from lowest to highest.
func AllRarities() []Rarity {
	return []Rarity{RarityCommon, RarityRare, RarityEpic, RarityLegendary}
}

// DisplayName returns a human-readable label for the rarity.
func (r Rarity) DisplayName() string {
	switch r {
	case RarityCommon:
		return "Common"
	case RarityRare:
		return "Rare"
	case RarityEpic:
		return "Epic"
	case RarityLegendary:
		return "Legendary"
	default:
		return string(r)
	}
}

// ScoreRarity returns the rarity for the lesson mastery that triggered the
// award.
func ScoreRarity(finalScore int) Rarity {
	switch {
	case finalScore >= 100:
		return RarityLegendary
	case finalScore >= 98:
		return RarityEpic
	case finalScore >= 96:
		return RarityRare
	default:
		return RarityCommon
	}
}

// Coins returns the coin value of a gem.
func Coins(t GemType, r Rarity) int {
	var base int
	switch r {
	case RarityLegendary:
		base = 150
	case RarityEpic:
		base = 100
	case RarityRare:
		base = 75
	default:
		base = 50
	}
	if t == GemRecovery {
		return base / 2
	}
	return base
}
