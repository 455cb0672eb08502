package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/store"
)

// Journal writes store mutations through to MySQL.  Each call runs in
// its own transaction so a failed write leaves the tables untouched and
// the store aborts the mutation.
type Journal struct {
	db           *sql.DB
	movies       *MovieRepo
	users        *UserRepo
	reservations *ReservationRepo
}

var _ store.Journal = (*Journal)(nil)

func NewJournal(db *sql.DB) *Journal {
	return &Journal{
		db:           db,
		movies:       NewMovieRepo(db),
		users:        NewUserRepo(db),
		reservations: NewReservationRepo(db),
	}
}

func (j *Journal) InsertMovie(ctx context.Context, m model.Movie) error {
	return j.inTx(ctx, "insert movie", func(tx *sql.Tx) error {
		if err := j.movies.InsertTx(ctx, tx, m); err != nil {
			return err
		}
		return setSequenceTx(ctx, tx, seqMovie, m.ID+1)
	})
}

func (j *Journal) DeleteMovie(ctx context.Context, id uint64) error {
	return j.inTx(ctx, "delete movie", func(tx *sql.Tx) error {
		if err := j.reservations.DeleteByMovieTx(ctx, tx, id); err != nil {
			return err
		}
		return j.movies.DeleteTx(ctx, tx, id)
	})
}

func (j *Journal) InsertUser(ctx context.Context, u model.User) error {
	return j.inTx(ctx, "insert user", func(tx *sql.Tx) error {
		if err := j.users.InsertTx(ctx, tx, u); err != nil {
			return err
		}
		return setSequenceTx(ctx, tx, seqUser, u.ID+1)
	})
}

func (j *Journal) DeleteUser(ctx context.Context, id uint64) error {
	return j.inTx(ctx, "delete user", func(tx *sql.Tx) error {
		if err := j.reservations.DeleteByUserTx(ctx, tx, id); err != nil {
			return err
		}
		return j.users.DeleteTx(ctx, tx, id)
	})
}

func (j *Journal) InsertReservation(ctx context.Context, r model.Reservation) error {
	return j.inTx(ctx, "insert reservation", func(tx *sql.Tx) error {
		return j.reservations.InsertTx(ctx, tx, r)
	})
}

func (j *Journal) InsertRating(ctx context.Context, r model.Rating) error {
	return j.inTx(ctx, "insert rating", func(tx *sql.Tx) error {
		return j.reservations.InsertRatingTx(ctx, tx, r)
	})
}

// Reset empties the catalogue tables and rewinds both id sequences.
// The activity log is kept.
func (j *Journal) Reset(ctx context.Context) error {
	return j.inTx(ctx, "reset", func(tx *sql.Tx) error {
		for _, stmt := range []string{
			"DELETE FROM ratings",
			"DELETE FROM reservations",
			"DELETE FROM movies",
			"DELETE FROM customers",
			"UPDATE id_sequences SET next_id=1",
		} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
}

// Load reads the persisted catalogue into a snapshot suitable for
// store.Restore.
func (j *Journal) Load(ctx context.Context) (store.Snapshot, error) {
	var (
		snap store.Snapshot
		err  error
	)
	if snap.Movies, err = j.movies.List(ctx); err != nil {
		return snap, fmt.Errorf("load movies: %w", err)
	}
	if snap.Users, err = j.users.List(ctx); err != nil {
		return snap, fmt.Errorf("load customers: %w", err)
	}
	if snap.Reservations, err = j.reservations.List(ctx); err != nil {
		return snap, fmt.Errorf("load reservations: %w", err)
	}
	if snap.Ratings, err = j.reservations.ListRatings(ctx); err != nil {
		return snap, fmt.Errorf("load ratings: %w", err)
	}
	if snap.NextMovieID, err = j.sequence(ctx, seqMovie); err != nil {
		return snap, err
	}
	if snap.NextUserID, err = j.sequence(ctx, seqUser); err != nil {
		return snap, err
	}
	return snap, nil
}

func (j *Journal) sequence(ctx context.Context, name string) (uint64, error) {
	var next uint64
	err := j.db.QueryRowContext(ctx, "SELECT next_id FROM id_sequences WHERE name=?", name).Scan(&next)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("load %s sequence: %w", name, ErrSequenceMissing)
	}
	if err != nil {
		return 0, fmt.Errorf("load %s sequence: %w", name, err)
	}
	return next, nil
}

func (j *Journal) inTx(ctx context.Context, op string, fn func(*sql.Tx) error) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}
