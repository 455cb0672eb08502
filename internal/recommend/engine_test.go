package recommend

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/store"
)

type seed struct {
	movies []int // prices, titled M1, M2, ...
	users  []model.Tier
	// reservations as (movie index, user index, rating or 0)
	bookings [][3]int
}

func build(t *testing.T, sd seed) (*store.Store, []uint64, []uint64) {
	t.Helper()
	ctx := context.Background()
	s := store.New()
	movies := make([]uint64, len(sd.movies))
	for i, p := range sd.movies {
		id, err := s.InsertMovie(ctx, "M"+string(rune('1'+i)), "dir", p)
		require.NoError(t, err)
		movies[i] = id
	}
	users := make([]uint64, len(sd.users))
	for i, tier := range sd.users {
		id, err := s.InsertUser(ctx, "U"+string(rune('1'+i)), 20+i, tier)
		require.NoError(t, err)
		users[i] = id
	}
	for _, b := range sd.bookings {
		_, err := s.BookMovie(ctx, movies[b[0]], users[b[1]], store.BookOptions{})
		require.NoError(t, err)
		if b[2] > 0 {
			require.NoError(t, s.RateMovie(ctx, movies[b[0]], users[b[1]], b[2]))
		}
	}
	return s, movies, users
}

// Three users, four movies:
//
//	     A  B  C  D
//	u1   5  4  .  r
//	u2   4  .  2  .
//	u3   .  2  5  3
//
// "r" is a reservation without a rating.
func cfSeed() seed {
	return seed{
		movies: []int{1000, 2000, 3000, 4000},
		users:  []model.Tier{model.TierBasic, model.TierVIP, model.TierBasic},
		bookings: [][3]int{
			{0, 0, 5}, {1, 0, 4}, {3, 0, 0},
			{0, 1, 4}, {2, 1, 2},
			{1, 2, 2}, {2, 2, 5}, {3, 2, 3},
		},
	}
}

func TestSimilarity(t *testing.T) {
	s, movies, _ := build(t, cfSeed())
	e := NewEngine(s, zerolog.Nop())

	sim, ids, err := e.Similarity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, movies, ids)

	want := [][]float64{
		{1.0, -0.3223, 0.189, -0.9258},
		{-0.3223, 1.0, -0.4264, 0.5222},
		{0.189, -0.4264, 1.0, 0.0},
		{-0.9258, 0.5222, 0.0, 1.0},
	}
	for a := range want {
		for b := range want[a] {
			assert.InDelta(t, want[a][b], sim.At(a, b), 1e-9, "S[%d][%d]", a, b)
		}
	}
}

func TestRecommendItemBasedRanksPredictions(t *testing.T) {
	s, movies, users := build(t, cfSeed())
	e := NewEngine(s, zerolog.Nop())

	recs, err := e.RecommendItemBased(context.Background(), users[1], 5)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, movies[3], recs[0].ID)
	assert.InDelta(t, 5.2939, recs[0].PredictedRating, 1e-9)
	assert.Equal(t, 2000.0, recs[0].Price) // vip pays half
	require.NotNil(t, recs[0].AvgRating)
	assert.InDelta(t, 3.0, *recs[0].AvgRating, 1e-9)

	assert.Equal(t, movies[1], recs[1].ID)
	assert.InDelta(t, 2.5404, recs[1].PredictedRating, 1e-9)

	top, err := e.RecommendItemBased(context.Background(), users[1], 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, movies[3], top[0].ID)
}

func TestRecommendItemBasedExcludesReservedMovies(t *testing.T) {
	s, movies, users := build(t, cfSeed())
	e := NewEngine(s, zerolog.Nop())

	// u1 reserved D without rating it; D would otherwise rank first
	recs, err := e.RecommendItemBased(context.Background(), users[0], 5)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, movies[2], recs[0].ID)
	assert.InDelta(t, 3.2039, recs[0].PredictedRating, 1e-9)
}

func TestRecommendItemBasedIsDeterministic(t *testing.T) {
	s, _, users := build(t, cfSeed())
	e := NewEngine(s, zerolog.Nop())
	ctx := context.Background()

	first, err := e.RecommendItemBased(ctx, users[1], 10)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := e.RecommendItemBased(ctx, users[1], 10)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRecommendItemBasedErrors(t *testing.T) {
	sd := cfSeed()
	sd.users = append(sd.users, model.TierPremium)
	s, _, users := build(t, sd)
	e := NewEngine(s, zerolog.Nop())
	ctx := context.Background()

	_, err := e.RecommendItemBased(ctx, 999, 3)
	assert.ErrorIs(t, err, model.ErrUserNotFound)

	_, err = e.RecommendItemBased(ctx, users[3], 3)
	assert.ErrorIs(t, err, model.ErrNoRatingsForTargetUser)

	recs, err := e.RecommendItemBased(ctx, users[0], 0)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestRecommendItemBasedEmptyColumns(t *testing.T) {
	// a movie nobody rated has a zero column; it must not poison the
	// similarity of the others
	s, movies, users := build(t, seed{
		movies:   []int{100, 200, 300},
		users:    []model.Tier{model.TierBasic, model.TierBasic},
		bookings: [][3]int{{0, 0, 4}, {1, 1, 3}},
	})
	e := NewEngine(s, zerolog.Nop())

	recs, err := e.RecommendItemBased(context.Background(), users[0], 5)
	require.NoError(t, err)
	ids := make([]uint64, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.ID)
		assert.False(t, r.PredictedRating != r.PredictedRating, "NaN prediction")
	}
	assert.ElementsMatch(t, []uint64{movies[1], movies[2]}, ids)
}

func TestRecommendPopularity(t *testing.T) {
	s, movies, users := build(t, seed{
		movies: []int{1000, 2000, 3000, 4000},
		users:  []model.Tier{model.TierPremium, model.TierBasic, model.TierBasic, model.TierBasic},
		bookings: [][3]int{
			{2, 0, 0},
			{0, 1, 4}, {1, 1, 5},
			{0, 2, 2},
		},
	})
	e := NewEngine(s, zerolog.Nop())
	ctx := context.Background()

	pop, err := e.RecommendPopularity(ctx, users[0])
	require.NoError(t, err)
	require.NotNil(t, pop.HighestRated)
	assert.Equal(t, movies[1], pop.HighestRated.ID)
	assert.Equal(t, 1500.0, pop.HighestRated.Price)
	assert.InDelta(t, 5.0, *pop.HighestRated.AvgRating, 1e-9)

	require.NotNil(t, pop.MostReserved)
	assert.Equal(t, movies[0], pop.MostReserved.ID)
	assert.Equal(t, 2, pop.MostReserved.Reservations)
	assert.Equal(t, 750.0, pop.MostReserved.Price)

	// movie D has no reservations and is never picked, even for a user
	// who has seen everything else
	pop, err = e.RecommendPopularity(ctx, users[3])
	require.NoError(t, err)
	assert.Equal(t, movies[1], pop.HighestRated.ID)
	assert.Equal(t, movies[0], pop.MostReserved.ID)

	_, err = e.RecommendPopularity(ctx, 999)
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestRecommendPopularityTiesAndEmpty(t *testing.T) {
	s, movies, users := build(t, seed{
		movies:   []int{100, 200},
		users:    []model.Tier{model.TierBasic, model.TierBasic, model.TierBasic},
		bookings: [][3]int{{0, 1, 3}, {1, 2, 3}},
	})
	e := NewEngine(s, zerolog.Nop())
	ctx := context.Background()

	pop, err := e.RecommendPopularity(ctx, users[0])
	require.NoError(t, err)
	assert.Equal(t, movies[0], pop.HighestRated.ID)
	assert.Equal(t, movies[0], pop.MostReserved.ID)

	// u2 has seen movie 1, so only movie 2 is unseen
	pop, err = e.RecommendPopularity(ctx, users[1])
	require.NoError(t, err)
	assert.Equal(t, movies[1], pop.HighestRated.ID)

	require.NoError(t, s.Reset(ctx))
	id, err := s.InsertUser(ctx, "Solo", 30, model.TierBasic)
	require.NoError(t, err)
	pop, err = e.RecommendPopularity(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, pop.HighestRated)
	assert.Nil(t, pop.MostReserved)
}
