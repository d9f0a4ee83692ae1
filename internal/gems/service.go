package gems

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/atomastery/internal/logger"
	"github.com/abhisek/atomastery/internal/mastery"
	"github.com/abhisek/atomastery/internal/store"
)

// Repo is the slice of the event store gems needs.
type Repo interface {
	AwardGem(ctx context.Context, userID, lessonID string, ts time.Time, build func(prior bool) store.GemEventData) (store.GemEventData, int64, error)
	QueryGemEvents(ctx context.Context, userID string, opts store.QueryOpts) ([]store.GemEventRecord, error)
	CoinBalance(ctx context.Context, userID string) (int, error)
	GemCounts(ctx context.Context, userID string) (map[string]int, int, error)
}

// Notifier is told about every persisted award. Failures are logged and
// do not revoke the award.
type Notifier interface {
	GemAwarded(ctx context.Context, award GemAward) error
}

// Service awards gems and coins when a lesson is mastered. It implements
// mastery.RewardTrigger.
type Service struct {
	repo     Repo
	notifier Notifier
	log      *logger.Logger
	now      func() time.Time
}

// NewService creates a gem service. notifier may be nil.
func NewService(repo Repo, notifier Notifier, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, notifier: notifier, log: log, now: time.Now}
}

var _ mastery.RewardTrigger = (*Service)(nil)

// OnMasteryAchieved persists a gem for the crossing and reports the coins
// granted.
func (s *Service) OnMasteryAchieved(ctx context.Context, userID, lessonID string, finalScore int) (*mastery.RewardOutcome, error) {
	award, err := s.AwardMastery(ctx, userID, lessonID, finalScore)
	if err != nil {
		return nil, err
	}
	return &mastery.RewardOutcome{
		RewardGranted: true,
		CoinsAdded:    award.Coins,
		RewardID:      award.RewardID,
		Rarity:        string(award.Rarity),
	}, nil
}

// AwardMastery awards a mastery gem, or a recovery gem if the learner has
// mastered this lesson before. The prior-gem check and the write happen in
// one store transaction.
func (s *Service) AwardMastery(ctx context.Context, userID, lessonID string, finalScore int) (*GemAward, error) {
	rarity := ScoreRarity(finalScore)
	award := &GemAward{
		RewardID:   uuid.NewString(),
		Rarity:     rarity,
		UserID:     userID,
		LessonID:   lessonID,
		FinalScore: finalScore,
		AwardedAt:  s.now().UTC(),
	}
	_, _, err := s.repo.AwardGem(ctx, userID, lessonID, award.AwardedAt, func(prior bool) store.GemEventData {
		award.Type = GemMastery
		if prior {
			award.Type = GemRecovery
		}
		award.Coins = Coins(award.Type, rarity)
		return eventData(award)
	})
	if err != nil {
		return nil, fmt.Errorf("persist gem: %w", err)
	}

	s.log.Info("gem awarded",
		"user_id", userID, "lesson_id", lessonID,
		"gem_type", award.Type, "rarity", award.Rarity, "coins", award.Coins)

	if s.notifier != nil {
		if err := s.notifier.GemAwarded(ctx, *award); err != nil {
			s.log.Warn("gem notification failed", "reward_id", award.RewardID, "error", err)
		}
	}
	return award, nil
}

// Wallet is a learner's accumulated rewards.
type Wallet struct {
	Coins    int            `json:"coins"`
	Total    int            `json:"totalGems"`
	ByRarity map[string]int `json:"byRarity"`
}

// Wallet returns the learner's coin balance and gem counts.
func (s *Service) Wallet(ctx context.Context, userID string) (*Wallet, error) {
	coins, err := s.repo.CoinBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	counts, total, err := s.repo.GemCounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Wallet{Coins: coins, Total: total, ByRarity: counts}, nil
}

// History returns the learner's awards, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]GemAward, error) {
	records, err := s.repo.QueryGemEvents(ctx, userID, store.QueryOpts{Limit: limit})
	if err != nil {
		return nil, err
	}
	out := make([]GemAward, len(records))
	for i, r := range records {
		out[i] = GemAward{
			RewardID:   r.RewardID,
			Type:       GemType(r.GemType),
			Rarity:     Rarity(r.Rarity),
			UserID:     r.UserID,
			LessonID:   r.LessonID,
			FinalScore: r.FinalScore,
			Coins:      r.Coins,
			AwardedAt:  r.Timestamp,
		}
	}
	return out, nil
}

func eventData(award *GemAward) store.GemEventData {
	return store.GemEventData{
		RewardID:   award.RewardID,
		UserID:     award.UserID,
		LessonID:   award.LessonID,
		GemType:    string(award.Type),
		Rarity:     string(award.Rarity),
		FinalScore: award.FinalScore,
		Coins:      award.Coins,
	}
}
