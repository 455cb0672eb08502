package repository

import (
	"context"
	"database/sql"
	"time"
)

// ActivityRecord is one row of the activity_log table, written by the
// event consumer.
type ActivityRecord struct {
	EventID    string
	Type       string
	MovieID    *uint64
	UserID     *uint64
	Payload    []byte
	OccurredAt time.Time
}

// ActivityRepo appends consumed events to activity_log.
type ActivityRepo struct{ DB *sql.DB }

func NewActivityRepo(db *sql.DB) *ActivityRepo { return &ActivityRepo{DB: db} }

// Append stores rec.  Redelivered events with a known id are ignored.
func (r *ActivityRepo) Append(ctx context.Context, rec ActivityRecord) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO activity_log (event_id, type, movie_id, user_id, payload, occurred_at) VALUES (?,?,?,?,?,?)",
		rec.EventID, rec.Type, nullID(rec.MovieID), nullID(rec.UserID), rec.Payload, rec.OccurredAt.UTC())
	return err
}

// Recent returns the newest limit records, newest first.
func (r *ActivityRepo) Recent(ctx context.Context, limit int) ([]ActivityRecord, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT event_id, type, movie_id, user_id, payload, occurred_at FROM activity_log ORDER BY occurred_at DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ActivityRecord
	for rows.Next() {
		var (
			rec             ActivityRecord
			movieID, userID sql.NullInt64
		)
		if err := rows.Scan(&rec.EventID, &rec.Type, &movieID, &userID, &rec.Payload, &rec.OccurredAt); err != nil {
			return nil, err
		}
		rec.MovieID = fromNull(movieID)
		rec.UserID = fromNull(userID)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullID(id *uint64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*id), Valid: true}
}

func fromNull(n sql.NullInt64) *uint64 {
	if !n.Valid {
		return nil
	}
	id := uint64(n.Int64)
	return &id
}
