package store

import (
	"fmt"
	"sort"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// Snapshot is a point-in-time copy of the store.  Slices are ordered
// by id (reservations and ratings by movie id, then user id) so that
// every reader sees the same deterministic layout.
type Snapshot struct {
	Movies       []model.Movie
	Users        []model.User
	Reservations []model.Reservation
	Ratings      []model.Rating

	// NextMovieID and NextUserID are the ids the next inserts will
	// receive.  Restore accepts zero and derives them from the data.
	NextMovieID uint64
	NextUserID  uint64
}

// Snapshot copies the current state under the read lock.  The result
// never reflects a partially applied mutation.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Movies:       make([]model.Movie, 0, len(s.movies)),
		Users:        make([]model.User, 0, len(s.users)),
		Reservations: make([]model.Reservation, 0, len(s.reservations)),
		Ratings:      make([]model.Rating, 0, len(s.ratings)),
		NextMovieID:  s.nextMovieID,
		NextUserID:   s.nextUserID,
	}
	for _, m := range s.movies {
		snap.Movies = append(snap.Movies, m)
	}
	for _, u := range s.users {
		snap.Users = append(snap.Users, u)
	}
	for _, r := range s.reservations {
		snap.Reservations = append(snap.Reservations, r)
	}
	for _, r := range s.ratings {
		snap.Ratings = append(snap.Ratings, r)
	}
	snap.sort()
	return snap
}

func (snap *Snapshot) sort() {
	sort.Slice(snap.Movies, func(i, j int) bool { return snap.Movies[i].ID < snap.Movies[j].ID })
	sort.Slice(snap.Users, func(i, j int) bool { return snap.Users[i].ID < snap.Users[j].ID })
	sort.Slice(snap.Reservations, func(i, j int) bool {
		return keyLess(snap.Reservations[i].Key(), snap.Reservations[j].Key())
	})
	sort.Slice(snap.Ratings, func(i, j int) bool {
		return keyLess(snap.Ratings[i].Key(), snap.Ratings[j].Key())
	})
}

// Restore replaces the store content with snap, typically loaded from
// the journal's backing database at startup.  Every rule the store
// enforces on mutation is re-checked; on the first violation Restore
// returns an error and the store keeps its previous content.  The
// journal is not called.
func (s *Store) Restore(snap Snapshot) error {
	next := New(WithJournal(s.journal), WithLogger(s.log))

	for _, m := range snap.Movies {
		if m.ID == 0 {
			return fmt.Errorf("restore: movie %q has no id", m.Title)
		}
		if _, dup := next.movies[m.ID]; dup {
			return fmt.Errorf("restore: duplicate movie id %d", m.ID)
		}
		if m.Price < model.MinMoviePrice || m.Price > model.MaxMoviePrice {
			return fmt.Errorf("restore: %w", model.MoviePriceOutOfRange(m.Price))
		}
		if _, dup := next.titles[m.Title]; dup {
			return fmt.Errorf("restore: %w", model.MovieTitleExists(m.Title))
		}
		next.movies[m.ID] = m
		next.titles[m.Title] = m.ID
		if m.ID >= next.nextMovieID {
			next.nextMovieID = m.ID + 1
		}
	}
	for _, u := range snap.Users {
		if u.ID == 0 {
			return fmt.Errorf("restore: user %q has no id", u.Name)
		}
		if _, dup := next.users[u.ID]; dup {
			return fmt.Errorf("restore: duplicate user id %d", u.ID)
		}
		if u.Age < model.MinUserAge || u.Age > model.MaxUserAge {
			return fmt.Errorf("restore: %w", model.UserAgeOutOfRange(u.Age))
		}
		if !u.Tier.Valid() {
			return fmt.Errorf("restore: %w", model.UserClassInvalid(string(u.Tier)))
		}
		if _, dup := next.identities[u.Identity()]; dup {
			return fmt.Errorf("restore: %w", model.UserExists(u.Name, u.Age))
		}
		next.users[u.ID] = u
		next.identities[u.Identity()] = u.ID
		if u.ID >= next.nextUserID {
			next.nextUserID = u.ID + 1
		}
	}
	for _, r := range snap.Reservations {
		if _, ok := next.movies[r.MovieID]; !ok {
			return fmt.Errorf("restore: reservation references %w", model.MovieNotFound(r.MovieID))
		}
		if _, ok := next.users[r.UserID]; !ok {
			return fmt.Errorf("restore: reservation references %w", model.UserNotFound(r.UserID))
		}
		if _, dup := next.reservations[r.Key()]; dup {
			return fmt.Errorf("restore: %w", model.AlreadyBooked(r.MovieID, r.UserID))
		}
		if len(next.byMovie[r.MovieID]) >= model.MovieCapacity {
			return fmt.Errorf("restore: %w", model.MovieFullyBooked(r.MovieID))
		}
		next.addReservation(r)
	}
	for _, r := range snap.Ratings {
		if _, ok := next.reservations[r.Key()]; !ok {
			return fmt.Errorf("restore: rating references %w", model.NotBooked(r.MovieID, r.UserID))
		}
		if r.Value < model.MinRating || r.Value > model.MaxRating {
			return fmt.Errorf("restore: %w", model.RatingOutOfRange(r.Value))
		}
		if _, dup := next.ratings[r.Key()]; dup {
			return fmt.Errorf("restore: %w", model.AlreadyRated(r.MovieID, r.UserID))
		}
		next.ratings[r.Key()] = r
	}
	if snap.NextMovieID > next.nextMovieID {
		next.nextMovieID = snap.NextMovieID
	}
	if snap.NextUserID > next.nextUserID {
		next.nextUserID = snap.NextUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMovieID, s.nextUserID = next.nextMovieID, next.nextUserID
	s.movies, s.users = next.movies, next.users
	s.reservations, s.ratings = next.reservations, next.ratings
	s.titles, s.identities = next.titles, next.identities
	s.byMovie, s.byUser = next.byMovie, next.byUser
	s.log.Info().
		Int("movies", len(s.movies)).
		Int("users", len(s.users)).
		Int("reservations", len(s.reservations)).
		Int("ratings", len(s.ratings)).
		Msg("store restored")
	return nil
}
