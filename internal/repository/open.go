package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/iliyamo/cinema-booking/internal/store"
)

// OpenStore migrates the schema, restores the persisted catalogue and
// returns a store that journals every further change to db.
func OpenStore(ctx context.Context, db *sql.DB, log zerolog.Logger) (*store.Store, error) {
	if err := Migrate(ctx, db); err != nil {
		return nil, err
	}
	j := NewJournal(db)
	snap, err := j.Load(ctx)
	if err != nil {
		return nil, err
	}
	s := store.New(store.WithJournal(j), store.WithLogger(log))
	if err := s.Restore(snap); err != nil {
		return nil, fmt.Errorf("restore catalogue: %w", err)
	}
	log.Info().
		Int("movies", len(snap.Movies)).
		Int("users", len(snap.Users)).
		Int("reservations", len(snap.Reservations)).
		Int("ratings", len(snap.Ratings)).
		Msg("catalogue restored")
	return s, nil
}
