package store

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

// EventRepo provides append and query access to the event logs. Mastery
// events are appended by RecordRepo.Save inside the record transaction.
type EventRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

// QueryMasteryEvents returns a lesson's mastery events for a user, newest
// first.
func (r *EventRepo) QueryMasteryEvents(ctx context.Context, userID, lessonID string, opts QueryOpts) ([]MasteryEventRecord, error) {
	sel := builder().
		Select("sequence", "timestamp", "element_id", "reason", "requested_score", "applied_score",
			"from_mastery", "to_mastery", "from_status", "to_status").
		From(entsql.Table(MasteryEventsTable.Name)).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("lesson_id", lessonID),
		)).
		OrderBy(entsql.Desc("sequence"))
	applyQueryOpts(sel, opts)

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query mastery events: %w", err)
	}
	defer rows.Close()

	var records []MasteryEventRecord
	for rows.Next() {
		rec := MasteryEventRecord{MasteryEventData: MasteryEventData{UserID: userID, LessonID: lessonID}}
		var reason sql.NullString
		if err := rows.Scan(&rec.Sequence, &rec.Timestamp, &rec.ElementID, &reason,
			&rec.RequestedScore, &rec.AppliedScore, &rec.FromMastery, &rec.ToMastery,
			&rec.FromStatus, &rec.ToStatus); err != nil {
			return nil, fmt.Errorf("scan mastery event: %w", err)
		}
		rec.Reason = reason.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

func applyQueryOpts(sel *entsql.Selector, opts QueryOpts) {
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
	if opts.After > 0 {
		sel.Where(entsql.GT("sequence", opts.After))
	}
	if opts.Before > 0 {
		sel.Where(entsql.LT("sequence", opts.Before))
	}
	if !opts.From.IsZero() {
		sel.Where(entsql.GTE("timestamp", opts.From))
	}
	if !opts.To.IsZero() {
		sel.Where(entsql.LTE("timestamp", opts.To))
	}
}
