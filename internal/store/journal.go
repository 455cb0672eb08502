package store

import (
	"context"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// Journal receives every change the store is about to commit.  It is
// called while the store holds its write lock, after all business
// checks passed.  Returning an error aborts the mutation and leaves
// the in-memory state untouched.  Deletes are issued for the parent
// entity only; implementations are expected to remove dependent
// reservations and ratings themselves.
type Journal interface {
	InsertMovie(ctx context.Context, m model.Movie) error
	DeleteMovie(ctx context.Context, id uint64) error
	InsertUser(ctx context.Context, u model.User) error
	DeleteUser(ctx context.Context, id uint64) error
	InsertReservation(ctx context.Context, r model.Reservation) error
	InsertRating(ctx context.Context, r model.Rating) error
	Reset(ctx context.Context) error
}

type nopJournal struct{}

func (nopJournal) InsertMovie(context.Context, model.Movie) error             { return nil }
func (nopJournal) DeleteMovie(context.Context, uint64) error                  { return nil }
func (nopJournal) InsertUser(context.Context, model.User) error               { return nil }
func (nopJournal) DeleteUser(context.Context, uint64) error                   { return nil }
func (nopJournal) InsertReservation(context.Context, model.Reservation) error { return nil }
func (nopJournal) InsertRating(context.Context, model.Rating) error           { return nil }
func (nopJournal) Reset(context.Context) error                                { return nil }
