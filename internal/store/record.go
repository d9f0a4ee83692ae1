package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// RecordRepo reads and writes mastery records.
type RecordRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

// Get returns the record for (userID, lessonID), or nil if none exists.
func (r *RecordRepo) Get(ctx context.Context, userID, lessonID string) (*MasteryRecordData, error) {
	query, args := builder().
		Select("elements", "global_mastery", "status", "version", "last_updated").
		From(entsql.Table(MasteryRecordsTable.Name)).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("lesson_id", lessonID),
		)).
		Query()

	var (
		raw string
		rec = MasteryRecordData{UserID: userID, LessonID: lessonID}
	)
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&raw, &rec.GlobalMastery, &rec.Status, &rec.Version, &rec.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query mastery record: %w", err)
	}

	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &rec.Elements); err != nil {
			return nil, fmt.Errorf("decode mastery record elements: %w", err)
		}
	}
	if rec.Elements == nil {
		rec.Elements = make(map[string]ElementStateData)
	}
	return &rec, nil
}

// Save writes rec if the stored version still equals expectedVersion, and
// appends ev to the mastery event log in the same transaction. An
// expectedVersion of 0 means the caller saw no record. On success
// rec.Version is advanced. A lost race returns ErrRecordConflict and
// leaves the database unchanged.
func (r *RecordRepo) Save(ctx context.Context, rec *MasteryRecordData, expectedVersion int64, ev MasteryEventData) (err error) {
	elements, err := json.Marshal(rec.Elements)
	if err != nil {
		return fmt.Errorf("encode mastery record elements: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	next := expectedVersion + 1
	var query string
	var args []any
	if expectedVersion == 0 {
		query, args = builder().
			Insert(MasteryRecordsTable.Name).
			Columns("user_id", "lesson_id", "elements", "global_mastery", "status", "version", "last_updated").
			Values(rec.UserID, rec.LessonID, string(elements), rec.GlobalMastery, rec.Status, next, rec.LastUpdated).
			OnConflict(entsql.ConflictColumns("user_id", "lesson_id"), entsql.DoNothing()).
			Query()
	} else {
		query, args = builder().
			Update(MasteryRecordsTable.Name).
			Set("elements", string(elements)).
			Set("global_mastery", rec.GlobalMastery).
			Set("status", rec.Status).
			Set("version", next).
			Set("last_updated", rec.LastUpdated).
			Where(entsql.And(
				entsql.EQ("user_id", rec.UserID),
				entsql.EQ("lesson_id", rec.LessonID),
				entsql.EQ("version", expectedVersion),
			)).
			Query()
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("write mastery record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write mastery record: %w", err)
	}
	if n == 0 {
		err = ErrRecordConflict
		return err
	}

	if err = r.appendMasteryEvent(ctx, tx, ev, rec.LastUpdated); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit mastery record: %w", err)
	}
	rec.Version = next
	return nil
}

func (r *RecordRepo) appendMasteryEvent(ctx context.Context, q queryer, data MasteryEventData, ts time.Time) error {
	seqNum, err := r.seq.Next(ctx, q)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	var reason any
	if data.Reason != "" {
		reason = data.Reason
	}

	query, args := builder().
		Insert(MasteryEventsTable.Name).
		Columns("sequence", "timestamp", "user_id", "lesson_id", "element_id", "reason",
			"requested_score", "applied_score", "from_mastery", "to_mastery", "from_status", "to_status").
		Values(seqNum, ts, data.UserID, data.LessonID, data.ElementID, reason,
			data.RequestedScore, data.AppliedScore, data.FromMastery, data.ToMastery, data.FromStatus, data.ToStatus).
		Query()
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save mastery event: %w", err)
	}
	return nil
}
