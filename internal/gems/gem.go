package gems

import "time"

// GemAward represents a single gem earned for a lesson.
type GemAward struct {
	RewardID   string    `json:"rewardId"`
	Type       GemType   `json:"type"`
	Rarity     Rarity    `json:"rarity"`
	UserID     string    `json:"userId"`
	LessonID   string    `json:"lessonId"`
	FinalScore int       `json:"finalScore"`
	Coins      int       `json:"coins"`
	AwardedAt  time.Time `json:"awardedAt"`
}
