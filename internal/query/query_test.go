package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/store"
)

type fixture struct {
	s          *store.Store
	dune, gone uint64
	ann, bob   uint64
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	s := store.New()
	var f fixture
	f.s = s
	var err error
	f.dune, err = s.InsertMovie(ctx, "Dune", "Villeneuve", 10000)
	require.NoError(t, err)
	f.gone, err = s.InsertMovie(ctx, "Gone", "Fleming", 400)
	require.NoError(t, err)
	f.ann, err = s.InsertUser(ctx, "Ann", 30, model.TierPremium)
	require.NoError(t, err)
	f.bob, err = s.InsertUser(ctx, "Bob", 41, model.TierBasic)
	require.NoError(t, err)

	_, err = s.BookMovie(ctx, f.dune, f.ann, store.BookOptions{})
	require.NoError(t, err)
	_, err = s.BookMovie(ctx, f.dune, f.bob, store.BookOptions{})
	require.NoError(t, err)
	require.NoError(t, s.RateMovie(ctx, f.dune, f.bob, 4))
	return f
}

func TestListMovies(t *testing.T) {
	f := newFixture(t)
	rows := New(f.s).ListMovies()
	require.Len(t, rows, 2)

	dune := rows[0]
	assert.Equal(t, "Dune", dune.Title)
	assert.Equal(t, 2, dune.Reservations)
	require.NotNil(t, dune.AvgPrice)
	assert.InDelta(t, (7500.0+10000.0)/2, *dune.AvgPrice, 1e-9)
	require.NotNil(t, dune.AvgRating)
	assert.InDelta(t, 4.0, *dune.AvgRating, 1e-9)

	gone := rows[1]
	assert.Equal(t, 0, gone.Reservations)
	assert.Nil(t, gone.AvgPrice)
	assert.Nil(t, gone.AvgRating)
}

func TestUsersForMovie(t *testing.T) {
	f := newFixture(t)
	q := New(f.s)

	rows, err := q.UsersForMovie(f.dune)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, f.ann, rows[0].ID)
	assert.Equal(t, 7500.0, rows[0].ReservationPrice)
	assert.Nil(t, rows[0].Rating)
	assert.Equal(t, f.bob, rows[1].ID)
	require.NotNil(t, rows[1].Rating)
	assert.Equal(t, 4, *rows[1].Rating)

	rows, err = q.UsersForMovie(f.gone)
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = q.UsersForMovie(99)
	assert.ErrorIs(t, err, model.ErrMovieNotFound)
}

func TestMoviesForUser(t *testing.T) {
	f := newFixture(t)
	q := New(f.s)

	rows, err := q.MoviesForUser(f.bob)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Dune", rows[0].Title)
	assert.Equal(t, 10000.0, rows[0].ReservationPrice)

	_, err = q.MoviesForUser(99)
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestListUsersAndStats(t *testing.T) {
	f := newFixture(t)
	q := New(f.s)

	users := q.ListUsers()
	require.Len(t, users, 2)
	assert.Equal(t, "Ann", users[0].Name)
	assert.Equal(t, "Bob", users[1].Name)

	assert.Equal(t, Stats{Movies: 2, Users: 2, Reservations: 2, Ratings: 1}, q.Stats())
}
