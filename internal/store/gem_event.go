package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// AppendGemEvent records a granted reward and returns its sequence number.
func (r *EventRepo) AppendGemEvent(ctx context.Context, data GemEventData, ts time.Time) (int64, error) {
	_, seqNum, err := r.AwardGem(ctx, data.UserID, data.LessonID, ts, func(bool) GemEventData { return data })
	return seqNum, err
}

// AwardGem appends the gem event returned by build in one transaction.
// build is told whether the user already holds a gem for the lesson; the
// check and the insert cannot interleave with another award.
func (r *EventRepo) AwardGem(ctx context.Context, userID, lessonID string, ts time.Time, build func(prior bool) GemEventData) (data GemEventData, seqNum int64, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return data, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query, args := builder().
		Select(entsql.Count("*")).
		From(entsql.Table(GemEventsTable.Name)).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("lesson_id", lessonID),
		)).
		Query()
	var prior int
	if err = tx.QueryRowContext(ctx, query, args...).Scan(&prior); err != nil {
		return data, 0, fmt.Errorf("query prior gems: %w", err)
	}

	data = build(prior > 0)
	data.UserID, data.LessonID = userID, lessonID

	seqNum, err = r.seq.Next(ctx, tx)
	if err != nil {
		return data, 0, fmt.Errorf("next sequence: %w", err)
	}

	query, args = builder().
		Insert(GemEventsTable.Name).
		Columns("sequence", "timestamp", "reward_id", "user_id", "lesson_id", "gem_type", "rarity", "final_score", "coins").
		Values(seqNum, ts, data.RewardID, data.UserID, data.LessonID, data.GemType, data.Rarity, data.FinalScore, data.Coins).
		Query()
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return data, 0, fmt.Errorf("save gem event: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return data, 0, fmt.Errorf("commit gem event: %w", err)
	}
	return data, seqNum, nil
}

// QueryGemEvents returns a user's gem events, newest first.
func (r *EventRepo) QueryGemEvents(ctx context.Context, userID string, opts QueryOpts) ([]GemEventRecord, error) {
	sel := builder().
		Select("sequence", "timestamp", "reward_id", "lesson_id", "gem_type", "rarity", "final_score", "coins").
		From(entsql.Table(GemEventsTable.Name)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("sequence"))
	applyQueryOpts(sel, opts)

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query gem events: %w", err)
	}
	defer rows.Close()

	var records []GemEventRecord
	for rows.Next() {
		rec := GemEventRecord{GemEventData: GemEventData{UserID: userID}}
		if err := rows.Scan(&rec.Sequence, &rec.Timestamp, &rec.RewardID, &rec.LessonID,
			&rec.GemType, &rec.Rarity, &rec.FinalScore, &rec.Coins); err != nil {
			return nil, fmt.Errorf("scan gem event: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CoinBalance sums the coins a user has earned from rewards.
func (r *EventRepo) CoinBalance(ctx context.Context, userID string) (int, error) {
	query, args := builder().
		Select("COALESCE(SUM(coins), 0)").
		From(entsql.Table(GemEventsTable.Name)).
		Where(entsql.EQ("user_id", userID)).
		Query()

	var total int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("query coin balance: %w", err)
	}
	return total, nil
}

// GemCounts returns a user's gem counts by rarity and the total.
func (r *EventRepo) GemCounts(ctx context.Context, userID string) (map[string]int, int, error) {
	records, err := r.QueryGemEvents(ctx, userID, QueryOpts{})
	if err != nil {
		return nil, 0, fmt.Errorf("query gem counts: %w", err)
	}

	byRarity := make(map[string]int)
	for _, e := range records {
		byRarity[e.Rarity]++
	}
	return byRarity, len(records), nil
}
