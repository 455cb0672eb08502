package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/model"
)

func mustMovie(t *testing.T, s *Store, title string, price int) uint64 {
	t.Helper()
	id, err := s.InsertMovie(context.Background(), title, "director", price)
	require.NoError(t, err)
	return id
}

func mustUser(t *testing.T, s *Store, name string, age int, tier model.Tier) uint64 {
	t.Helper()
	id, err := s.InsertUser(context.Background(), name, age, tier)
	require.NoError(t, err)
	return id
}

func TestInsertMovie(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, err := s.InsertMovie(ctx, "Dune", "Villeneuve", 10000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	_, err = s.InsertMovie(ctx, "Dune", "Lynch", 5000)
	assert.ErrorIs(t, err, model.ErrMovieTitleExists)
	assert.Equal(t, 1, s.Counts().Movies)

	_, err = s.InsertMovie(ctx, "Too Expensive", "x", 100001)
	assert.ErrorIs(t, err, model.ErrMoviePriceOutOfRange)
	_, err = s.InsertMovie(ctx, "Negative", "x", -1)
	assert.ErrorIs(t, err, model.ErrMoviePriceOutOfRange)

	// range is checked before uniqueness
	_, err = s.InsertMovie(ctx, "Dune", "x", -5)
	assert.ErrorIs(t, err, model.ErrMoviePriceOutOfRange)

	id, err = s.InsertMovie(ctx, "Free", "x", 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), id)
	_, err = s.InsertMovie(ctx, "Max", "x", 100000)
	require.NoError(t, err)
}

func TestInsertUser(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, err := s.InsertUser(ctx, "Ann", 30, model.TierPremium)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	_, err = s.InsertUser(ctx, "Ann", 30, model.TierBasic)
	assert.ErrorIs(t, err, model.ErrUserExists)
	assert.Contains(t, err.Error(), "(Ann, 30)")

	// same name, different age is a different user
	_, err = s.InsertUser(ctx, "Ann", 31, model.TierBasic)
	require.NoError(t, err)

	_, err = s.InsertUser(ctx, "Kid", 11, model.TierBasic)
	assert.ErrorIs(t, err, model.ErrUserAgeOutOfRange)
	_, err = s.InsertUser(ctx, "Old", 111, model.TierBasic)
	assert.ErrorIs(t, err, model.ErrUserAgeOutOfRange)
	_, err = s.InsertUser(ctx, "Gold", 40, model.Tier("gold"))
	assert.ErrorIs(t, err, model.ErrUserClassInvalid)

	_, err = s.InsertUser(ctx, "Edge", 12, model.TierVIP)
	require.NoError(t, err)
	_, err = s.InsertUser(ctx, "Edge", 110, model.TierVIP)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Counts().Users)
}

func TestBookMovieExample(t *testing.T) {
	ctx := context.Background()
	s := New()
	movie := mustMovie(t, s, "Dune", 10000)
	ann := mustUser(t, s, "Ann", 30, model.TierPremium)

	price, err := s.BookMovie(ctx, movie, ann, BookOptions{})
	require.NoError(t, err)
	assert.Equal(t, 7500.0, price)

	_, err = s.BookMovie(ctx, movie, ann, BookOptions{})
	assert.ErrorIs(t, err, model.ErrAlreadyBooked)
	assert.Equal(t, 1, s.Counts().Reservations)
}

func TestBookMovieReferences(t *testing.T) {
	ctx := context.Background()
	s := New()
	movie := mustMovie(t, s, "Dune", 10000)
	user := mustUser(t, s, "Ann", 30, model.TierBasic)

	_, err := s.BookMovie(ctx, 99, user, BookOptions{})
	assert.ErrorIs(t, err, model.ErrMovieNotFound)
	_, err = s.BookMovie(ctx, movie, 99, BookOptions{})
	assert.ErrorIs(t, err, model.ErrUserNotFound)

	// overrides never bypass referential integrity
	price := 500.0
	tier := model.TierVIP
	_, err = s.BookMovie(ctx, 99, user, BookOptions{Price: &price})
	assert.ErrorIs(t, err, model.ErrMovieNotFound)
	_, err = s.BookMovie(ctx, movie, 99, BookOptions{Tier: &tier})
	assert.ErrorIs(t, err, model.ErrUserNotFound)

	got, err := s.BookMovie(ctx, movie, user, BookOptions{Price: &price, Tier: &tier})
	require.NoError(t, err)
	assert.Equal(t, 250.0, got)
}

func TestBookMovieRejectsUnknownTierOverride(t *testing.T) {
	ctx := context.Background()
	s := New()
	movie := mustMovie(t, s, "Dune", 10000)
	user := mustUser(t, s, "Ann", 30, model.TierVIP)

	gold := model.Tier("gold")
	_, err := s.BookMovie(ctx, movie, user, BookOptions{Tier: &gold})
	assert.ErrorIs(t, err, model.ErrUserClassInvalid)
	assert.Equal(t, 0, s.Counts().Reservations)

	// the booking is still possible with the stored tier
	got, err := s.BookMovie(ctx, movie, user, BookOptions{})
	require.NoError(t, err)
	assert.Equal(t, 5000.0, got)
}

func TestBookMovieCapacity(t *testing.T) {
	ctx := context.Background()
	s := New()
	movie := mustMovie(t, s, "Dune", 10000)

	var users []uint64
	for i := 0; i < model.MovieCapacity+2; i++ {
		users = append(users, mustUser(t, s, fmt.Sprintf("user-%d", i), 20+i, model.TierBasic))
	}
	for _, u := range users[:model.MovieCapacity] {
		_, err := s.BookMovie(ctx, movie, u, BookOptions{})
		require.NoError(t, err)
	}

	_, err := s.BookMovie(ctx, movie, users[model.MovieCapacity], BookOptions{})
	assert.ErrorIs(t, err, model.ErrMovieFullyBooked)
	assert.Equal(t, model.MovieCapacity, s.Counts().Reservations)

	// an existing reserver sees AlreadyBooked, not MovieFullyBooked
	_, err = s.BookMovie(ctx, movie, users[0], BookOptions{})
	assert.ErrorIs(t, err, model.ErrAlreadyBooked)

	snap := s.Snapshot()
	require.Len(t, snap.Reservations, model.MovieCapacity)
	for i, r := range snap.Reservations {
		assert.Equal(t, users[i], r.UserID)
	}

	// freeing a seat makes room again
	require.NoError(t, s.RemoveUser(ctx, users[3]))
	_, err = s.BookMovie(ctx, movie, users[model.MovieCapacity], BookOptions{})
	require.NoError(t, err)
}

func TestBookMovieConcurrentCapacity(t *testing.T) {
	ctx := context.Background()
	s := New()
	movie := mustMovie(t, s, "Dune", 10000)

	const callers = 40
	users := make([]uint64, callers)
	for i := range users {
		users[i] = mustUser(t, s, fmt.Sprintf("user-%d", i), 30, model.TierBasic)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, full int
	)
	for _, u := range users {
		wg.Add(1)
		go func(u uint64) {
			defer wg.Done()
			_, err := s.BookMovie(ctx, movie, u, BookOptions{})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, model.ErrMovieFullyBooked):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(u)
	}
	wg.Wait()

	assert.Equal(t, model.MovieCapacity, ok)
	assert.Equal(t, callers-model.MovieCapacity, full)
	assert.Equal(t, model.MovieCapacity, s.Counts().Reservations)
}

func TestRateMovie(t *testing.T) {
	ctx := context.Background()
	s := New()
	movie := mustMovie(t, s, "Dune", 10000)
	other := mustMovie(t, s, "Alien", 8000)
	user := mustUser(t, s, "Ann", 30, model.TierBasic)
	_, err := s.BookMovie(ctx, movie, user, BookOptions{})
	require.NoError(t, err)

	assert.ErrorIs(t, s.RateMovie(ctx, 99, user, 3), model.ErrMovieNotFound)
	assert.ErrorIs(t, s.RateMovie(ctx, movie, 99, 3), model.ErrUserNotFound)
	assert.ErrorIs(t, s.RateMovie(ctx, other, user, 3), model.ErrNotBooked)
	// reference checks come before the range check
	assert.ErrorIs(t, s.RateMovie(ctx, other, user, 9), model.ErrNotBooked)
	assert.ErrorIs(t, s.RateMovie(ctx, movie, user, 0), model.ErrRatingOutOfRange)
	assert.ErrorIs(t, s.RateMovie(ctx, movie, user, 6), model.ErrRatingOutOfRange)

	require.NoError(t, s.RateMovie(ctx, movie, user, 5))
	assert.ErrorIs(t, s.RateMovie(ctx, movie, user, 4), model.ErrAlreadyRated)
	assert.Equal(t, 1, s.Counts().Ratings)
}

func TestRemoveCascades(t *testing.T) {
	ctx := context.Background()
	s := New()
	dune := mustMovie(t, s, "Dune", 10000)
	alien := mustMovie(t, s, "Alien", 8000)
	ann := mustUser(t, s, "Ann", 30, model.TierBasic)
	bob := mustUser(t, s, "Bob", 40, model.TierVIP)

	for _, m := range []uint64{dune, alien} {
		for _, u := range []uint64{ann, bob} {
			_, err := s.BookMovie(ctx, m, u, BookOptions{})
			require.NoError(t, err)
			require.NoError(t, s.RateMovie(ctx, m, u, 4))
		}
	}
	require.Equal(t, Counts{Movies: 2, Users: 2, Reservations: 4, Ratings: 4}, s.Counts())

	require.NoError(t, s.RemoveMovie(ctx, dune))
	assert.Equal(t, Counts{Movies: 1, Users: 2, Reservations: 2, Ratings: 2}, s.Counts())
	for _, r := range s.Snapshot().Ratings {
		assert.NotEqual(t, dune, r.MovieID)
	}
	assert.ErrorIs(t, s.RemoveMovie(ctx, dune), model.ErrMovieNotFound)

	require.NoError(t, s.RemoveUser(ctx, bob))
	assert.Equal(t, Counts{Movies: 1, Users: 1, Reservations: 1, Ratings: 1}, s.Counts())
	snap := s.Snapshot()
	require.Len(t, snap.Reservations, 1)
	assert.Equal(t, model.Key{MovieID: alien, UserID: ann}, snap.Reservations[0].Key())
	assert.ErrorIs(t, s.RemoveUser(ctx, bob), model.ErrUserNotFound)

	// the title and identity become available again
	_, err := s.InsertMovie(ctx, "Dune", "again", 1)
	require.NoError(t, err)
	_, err = s.InsertUser(ctx, "Bob", 40, model.TierBasic)
	require.NoError(t, err)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	s := New()
	m := mustMovie(t, s, "Dune", 10000)
	u := mustUser(t, s, "Ann", 30, model.TierBasic)
	_, err := s.BookMovie(ctx, m, u, BookOptions{})
	require.NoError(t, err)

	require.NoError(t, s.Reset(ctx))
	assert.Equal(t, Counts{}, s.Counts())
	assert.Equal(t, uint64(1), mustMovie(t, s, "Dune", 10000))
	assert.Equal(t, uint64(1), mustUser(t, s, "Ann", 30, model.TierBasic))
}

type failingJournal struct {
	nopJournal
	err error
}

func (f failingJournal) InsertReservation(context.Context, model.Reservation) error { return f.err }
func (f failingJournal) DeleteMovie(context.Context, uint64) error                  { return f.err }

func TestJournalFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("db down")
	s := New(WithJournal(failingJournal{err: boom}))
	m := mustMovie(t, s, "Dune", 10000)
	u := mustUser(t, s, "Ann", 30, model.TierBasic)

	_, err := s.BookMovie(ctx, m, u, BookOptions{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, model.KindUnknown, model.KindOf(err))
	assert.Equal(t, 0, s.Counts().Reservations)

	assert.ErrorIs(t, s.RemoveMovie(ctx, m), boom)
	_, ok := s.Movie(m)
	assert.True(t, ok)
}

func TestLookups(t *testing.T) {
	s := New()
	m := mustMovie(t, s, "Dune", 10000)
	u := mustUser(t, s, "Ann", 30, model.TierVIP)

	id, ok := s.MovieIDByTitle("Dune")
	assert.True(t, ok)
	assert.Equal(t, m, id)
	_, ok = s.MovieIDByTitle("Alien")
	assert.False(t, ok)

	id, ok = s.UserIDByIdentity("Ann", 30)
	assert.True(t, ok)
	assert.Equal(t, u, id)
	_, ok = s.UserIDByIdentity("Ann", 31)
	assert.False(t, ok)

	got, ok := s.User(u)
	require.True(t, ok)
	assert.Equal(t, model.TierVIP, got.Tier)
}
