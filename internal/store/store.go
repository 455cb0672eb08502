// Package store owns every movie, user, reservation and rating and
// enforces the catalogue's business rules on each mutation.
//
// Rules that a relational schema would declare (UNIQUE, CHECK,
// FOREIGN KEY ... ON DELETE CASCADE and the per-movie capacity) are
// checked explicitly here against in-memory indexes.  Each mutation
// runs under a single write lock: all checks pass and the full effect
// (including cascades) is committed, or nothing changes.  When a
// Journal is attached the change is written through to it before the
// in-memory commit, and a journal failure aborts the mutation.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/pricing"
)

// Store is the in-memory entity store.  The zero value is not usable;
// call New.
type Store struct {
	mu      sync.RWMutex
	journal Journal
	log     zerolog.Logger

	nextMovieID uint64
	nextUserID  uint64

	movies       map[uint64]model.Movie
	users        map[uint64]model.User
	reservations map[model.Key]model.Reservation
	ratings      map[model.Key]model.Rating

	// unique indexes
	titles     map[string]uint64
	identities map[model.Identity]uint64

	// cascade indexes: movie -> reserving users, user -> reserved movies
	byMovie map[uint64]map[uint64]struct{}
	byUser  map[uint64]map[uint64]struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithJournal writes every mutation through j before committing it in
// memory.
func WithJournal(j Journal) Option {
	return func(s *Store) { s.journal = j }
}

// WithLogger sets the logger used for commit and rejection traces.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{journal: nopJournal{}, log: zerolog.Nop()}
	for _, o := range opts {
		o(s)
	}
	s.clear()
	return s
}

func (s *Store) clear() {
	s.nextMovieID = 1
	s.nextUserID = 1
	s.movies = make(map[uint64]model.Movie)
	s.users = make(map[uint64]model.User)
	s.reservations = make(map[model.Key]model.Reservation)
	s.ratings = make(map[model.Key]model.Rating)
	s.titles = make(map[string]uint64)
	s.identities = make(map[model.Identity]uint64)
	s.byMovie = make(map[uint64]map[uint64]struct{})
	s.byUser = make(map[uint64]map[uint64]struct{})
}

// InsertMovie creates a movie and returns its id.  The price must lie
// within [0, 100000] and the title must not be in use.
func (s *Store) InsertMovie(ctx context.Context, title, director string, price int) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if price < model.MinMoviePrice || price > model.MaxMoviePrice {
		return 0, s.reject("insert_movie", model.MoviePriceOutOfRange(price))
	}
	if _, ok := s.titles[title]; ok {
		return 0, s.reject("insert_movie", model.MovieTitleExists(title))
	}

	m := model.Movie{ID: s.nextMovieID, Title: title, Director: director, Price: price}
	if err := s.journal.InsertMovie(ctx, m); err != nil {
		return 0, fmt.Errorf("journal insert movie: %w", err)
	}
	s.movies[m.ID] = m
	s.titles[m.Title] = m.ID
	s.nextMovieID++
	s.log.Debug().Uint64("movie_id", m.ID).Str("title", m.Title).Msg("movie inserted")
	return m.ID, nil
}

// RemoveMovie deletes a movie together with every reservation and
// rating that references it.
func (s *Store) RemoveMovie(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.movies[id]
	if !ok {
		return s.reject("remove_movie", model.MovieNotFound(id))
	}
	if err := s.journal.DeleteMovie(ctx, id); err != nil {
		return fmt.Errorf("journal delete movie: %w", err)
	}
	cascaded := 0
	for userID := range s.byMovie[id] {
		s.dropReservation(model.Key{MovieID: id, UserID: userID})
		cascaded++
	}
	delete(s.byMovie, id)
	delete(s.titles, m.Title)
	delete(s.movies, id)
	s.log.Debug().Uint64("movie_id", id).Int("reservations", cascaded).Msg("movie removed")
	return nil
}

// InsertUser creates a user and returns its id.  Age and tier are
// range checked before the (name, age) uniqueness check.
func (s *Store) InsertUser(ctx context.Context, name string, age int, tier model.Tier) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if age < model.MinUserAge || age > model.MaxUserAge {
		return 0, s.reject("insert_user", model.UserAgeOutOfRange(age))
	}
	if !tier.Valid() {
		return 0, s.reject("insert_user", model.UserClassInvalid(string(tier)))
	}
	ident := model.Identity{Name: name, Age: age}
	if _, ok := s.identities[ident]; ok {
		return 0, s.reject("insert_user", model.UserExists(name, age))
	}

	u := model.User{ID: s.nextUserID, Name: name, Age: age, Tier: tier}
	if err := s.journal.InsertUser(ctx, u); err != nil {
		return 0, fmt.Errorf("journal insert user: %w", err)
	}
	s.users[u.ID] = u
	s.identities[ident] = u.ID
	s.nextUserID++
	s.log.Debug().Uint64("user_id", u.ID).Str("name", u.Name).Int("age", u.Age).Msg("user inserted")
	return u.ID, nil
}

// RemoveUser deletes a user together with every reservation and
// rating that references it.
func (s *Store) RemoveUser(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return s.reject("remove_user", model.UserNotFound(id))
	}
	if err := s.journal.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("journal delete user: %w", err)
	}
	cascaded := 0
	for movieID := range s.byUser[id] {
		s.dropReservation(model.Key{MovieID: movieID, UserID: id})
		cascaded++
	}
	delete(s.byUser, id)
	delete(s.identities, u.Identity())
	delete(s.users, id)
	s.log.Debug().Uint64("user_id", id).Int("reservations", cascaded).Msg("user removed")
	return nil
}

// BookOptions overrides the values BookMovie would otherwise read from
// the stored movie and user.  The bulk loader uses them to book at the
// price and tier of the seed row.
type BookOptions struct {
	Price *float64
	Tier  *model.Tier
}

// BookMovie reserves movieID for userID and returns the price charged.
// Both entities must exist even when overrides are given, and the
// effective tier must be a known one.  An existing
// reservation for the pair is reported as AlreadyBooked before the
// capacity check, so a returning customer never sees MovieFullyBooked.
func (s *Store) BookMovie(ctx context.Context, movieID, userID uint64, opts BookOptions) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.movies[movieID]
	if !ok {
		return 0, s.reject("book_movie", model.MovieNotFound(movieID))
	}
	u, ok := s.users[userID]
	if !ok {
		return 0, s.reject("book_movie", model.UserNotFound(userID))
	}
	base := float64(m.Price)
	if opts.Price != nil {
		base = *opts.Price
	}
	tier := u.Tier
	if opts.Tier != nil {
		tier = *opts.Tier
	}
	if !tier.Valid() {
		return 0, s.reject("book_movie", model.UserClassInvalid(string(tier)))
	}

	key := model.Key{MovieID: movieID, UserID: userID}
	if _, ok := s.reservations[key]; ok {
		return 0, s.reject("book_movie", model.AlreadyBooked(movieID, userID))
	}
	if len(s.byMovie[movieID]) >= model.MovieCapacity {
		return 0, s.reject("book_movie", model.MovieFullyBooked(movieID))
	}

	r := model.Reservation{MovieID: movieID, UserID: userID, Price: pricing.ReservationPrice(base, tier)}
	if err := s.journal.InsertReservation(ctx, r); err != nil {
		return 0, fmt.Errorf("journal insert reservation: %w", err)
	}
	s.addReservation(r)
	s.log.Debug().Uint64("movie_id", movieID).Uint64("user_id", userID).Float64("price", r.Price).Msg("movie booked")
	return r.Price, nil
}

// RateMovie records a rating for an existing reservation.
func (s *Store) RateMovie(ctx context.Context, movieID, userID uint64, rating int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.movies[movieID]; !ok {
		return s.reject("rate_movie", model.MovieNotFound(movieID))
	}
	if _, ok := s.users[userID]; !ok {
		return s.reject("rate_movie", model.UserNotFound(userID))
	}
	key := model.Key{MovieID: movieID, UserID: userID}
	if _, ok := s.reservations[key]; !ok {
		return s.reject("rate_movie", model.NotBooked(movieID, userID))
	}
	if rating < model.MinRating || rating > model.MaxRating {
		return s.reject("rate_movie", model.RatingOutOfRange(rating))
	}
	if _, ok := s.ratings[key]; ok {
		return s.reject("rate_movie", model.AlreadyRated(movieID, userID))
	}

	r := model.Rating{MovieID: movieID, UserID: userID, Value: rating}
	if err := s.journal.InsertRating(ctx, r); err != nil {
		return fmt.Errorf("journal insert rating: %w", err)
	}
	s.ratings[key] = r
	s.log.Debug().Uint64("movie_id", movieID).Uint64("user_id", userID).Int("rating", rating).Msg("movie rated")
	return nil
}

// Reset removes every entity and restarts the id sequences.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.journal.Reset(ctx); err != nil {
		return fmt.Errorf("journal reset: %w", err)
	}
	s.clear()
	s.log.Info().Msg("store reset")
	return nil
}

// Movie returns the movie with the given id.
func (s *Store) Movie(id uint64) (model.Movie, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.movies[id]
	return m, ok
}

// User returns the user with the given id.
func (s *Store) User(id uint64) (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok
}

// MovieIDByTitle resolves a title through the unique title index.
func (s *Store) MovieIDByTitle(title string) (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.titles[title]
	return id, ok
}

// UserIDByIdentity resolves a (name, age) pair through the unique
// identity index.
func (s *Store) UserIDByIdentity(name string, age int) (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.identities[model.Identity{Name: name, Age: age}]
	return id, ok
}

// Counts holds the number of live entities of each kind.
type Counts struct {
	Movies       int `json:"movies"`
	Users        int `json:"users"`
	Reservations int `json:"reservations"`
	Ratings      int `json:"ratings"`
}

// Counts returns the current entity counts.
func (s *Store) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counts{
		Movies:       len(s.movies),
		Users:        len(s.users),
		Reservations: len(s.reservations),
		Ratings:      len(s.ratings),
	}
}

func (s *Store) addReservation(r model.Reservation) {
	s.reservations[r.Key()] = r
	if s.byMovie[r.MovieID] == nil {
		s.byMovie[r.MovieID] = make(map[uint64]struct{})
	}
	s.byMovie[r.MovieID][r.UserID] = struct{}{}
	if s.byUser[r.UserID] == nil {
		s.byUser[r.UserID] = make(map[uint64]struct{})
	}
	s.byUser[r.UserID][r.MovieID] = struct{}{}
}

// dropReservation removes a reservation, its rating and both index
// entries.  Callers hold the write lock.
func (s *Store) dropReservation(k model.Key) {
	delete(s.ratings, k)
	delete(s.reservations, k)
	if users := s.byMovie[k.MovieID]; users != nil {
		delete(users, k.UserID)
		if len(users) == 0 {
			delete(s.byMovie, k.MovieID)
		}
	}
	if movies := s.byUser[k.UserID]; movies != nil {
		delete(movies, k.MovieID)
		if len(movies) == 0 {
			delete(s.byUser, k.UserID)
		}
	}
}

func (s *Store) reject(op string, err error) error {
	s.log.Debug().Str("op", op).Str("kind", model.KindOf(err).String()).Err(err).Msg("mutation rejected")
	return err
}

func keyLess(a, b model.Key) bool {
	if a.MovieID != b.MovieID {
		return a.MovieID < b.MovieID
	}
	return a.UserID < b.UserID
}
