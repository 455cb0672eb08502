// Package recommend suggests movies to a customer.
//
// Two modes are offered.  Popularity picks, among the movies the
// customer has not reserved, the best rated and the most reserved one.
// Item-based collaborative filtering predicts the customer's rating for
// every movie they have not rated from movie-to-movie cosine similarity
// over a mean-filled, centred rating matrix.
//
// Both modes read a single store snapshot, and every floating point
// step runs in a fixed order with explicit rounding, so identical
// snapshots always produce identical output.
package recommend

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/cinema-booking/internal/metrics"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/pricing"
	"github.com/iliyamo/cinema-booking/internal/store"
)

const (
	meanPlaces       = 2
	similarityPlaces = 4
	predictPlaces    = 4
)

// Source is the part of the store the engine reads from.
type Source interface {
	Snapshot() store.Snapshot
}

// Engine computes recommendations from store snapshots.
type Engine struct {
	src Source
	log zerolog.Logger
}

// NewEngine returns an Engine reading from src.
func NewEngine(src Source, log zerolog.Logger) *Engine {
	return &Engine{src: src, log: log}
}

// Pick is one popularity result.  Price is the movie's price re-priced
// for the requesting customer's tier.
type Pick struct {
	ID           uint64   `json:"id"`
	Title        string   `json:"title"`
	Price        float64  `json:"reservation_price"`
	Reservations int      `json:"reservations"`
	AvgRating    *float64 `json:"avg_rating"`
}

// Popularity holds the two popularity picks.  Either is nil when no
// unseen movie qualifies.
type Popularity struct {
	HighestRated *Pick `json:"highest_rated"`
	MostReserved *Pick `json:"most_reserved"`
}

// Recommendation is one item-based result.
type Recommendation struct {
	ID              uint64   `json:"id"`
	Title           string   `json:"title"`
	Price           float64  `json:"reservation_price"`
	AvgRating       *float64 `json:"avg_rating"`
	PredictedRating float64  `json:"predicted_rating"`
}

// RecommendPopularity returns the best rated and the most reserved
// movie among those the user has not reserved.  Only movies that have
// at least one reservation are considered; ties go to the lowest id.
func (e *Engine) RecommendPopularity(ctx context.Context, userID uint64) (Popularity, error) {
	defer metrics.ObserveRecommend("popularity", time.Now())

	snap := e.src.Snapshot()
	v := newView(snap)
	user, ok := v.users[userID]
	if !ok {
		return Popularity{}, e.fail("popularity", model.UserNotFound(userID))
	}

	var out Popularity
	var bestRating float64
	bestCount := 0
	for _, m := range snap.Movies {
		reservers := v.reservers[m.ID]
		if len(reservers) == 0 {
			continue
		}
		if _, seen := reservers[userID]; seen {
			continue
		}
		avg := v.avgRating(m.ID)
		pick := &Pick{
			ID:           m.ID,
			Title:        m.Title,
			Price:        pricing.ReservationPrice(float64(m.Price), user.Tier),
			Reservations: len(reservers),
			AvgRating:    avg,
		}
		// movies are visited in ascending id order, so strict
		// comparisons keep the lowest id on ties
		if avg != nil && (out.HighestRated == nil || *avg > bestRating) {
			out.HighestRated, bestRating = pick, *avg
		}
		if out.MostReserved == nil || len(reservers) > bestCount {
			out.MostReserved, bestCount = pick, len(reservers)
		}
	}
	e.log.Debug().Uint64("user_id", userID).
		Bool("highest_rated", out.HighestRated != nil).
		Bool("most_reserved", out.MostReserved != nil).
		Msg("popularity computed")
	return out, nil
}

// RecommendItemBased returns up to k movies the user has neither rated
// nor reserved, ranked by predicted rating (descending) then movie id.
func (e *Engine) RecommendItemBased(ctx context.Context, userID uint64, k int) ([]Recommendation, error) {
	defer metrics.ObserveRecommend("item_based", time.Now())

	snap := e.src.Snapshot()
	v := newView(snap)
	user, ok := v.users[userID]
	if !ok {
		return nil, e.fail("item_based", model.UserNotFound(userID))
	}

	cf := buildModel(snap)
	row, ok := cf.userRow[userID]
	if !ok || !cf.rated[userID] {
		return nil, e.fail("item_based", model.NoRatingsForTargetUser(userID))
	}
	if k <= 0 {
		return []Recommendation{}, nil
	}

	type candidate struct {
		col       int
		predicted float64
	}
	var candidates []candidate
	for col, movieID := range cf.movieIDs {
		if cf.ratings.At(row, col) != 0 {
			continue
		}
		if _, reserved := v.reservers[movieID][userID]; reserved {
			continue
		}
		candidates = append(candidates, candidate{col: col, predicted: cf.predict(row, col)})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].predicted != candidates[j].predicted {
			return candidates[i].predicted > candidates[j].predicted
		}
		return cf.movieIDs[candidates[i].col] < cf.movieIDs[candidates[j].col]
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	out := make([]Recommendation, 0, len(candidates))
	for _, c := range candidates {
		m := v.movies[cf.movieIDs[c.col]]
		out = append(out, Recommendation{
			ID:              m.ID,
			Title:           m.Title,
			Price:           pricing.ReservationPrice(float64(m.Price), user.Tier),
			AvgRating:       v.avgRating(m.ID),
			PredictedRating: c.predicted,
		})
	}
	e.log.Debug().Uint64("user_id", userID).Int("k", k).Int("results", len(out)).Msg("item-based recommendations computed")
	return out, nil
}

// Similarity returns the rounded movie-to-movie cosine similarity
// matrix and the movie id of each row and column.
func (e *Engine) Similarity(ctx context.Context) (*Matrix, []uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	cf := buildModel(e.src.Snapshot())
	return cf.similarity, cf.movieIDs, nil
}

func (e *Engine) fail(mode string, err error) error {
	metrics.RecommendErrors.WithLabelValues(mode, model.KindOf(err).String()).Inc()
	return err
}

// view indexes a snapshot for the lookups both modes need.
type view struct {
	movies    map[uint64]model.Movie
	users     map[uint64]model.User
	reservers map[uint64]map[uint64]struct{}
	ratingSum map[uint64]int
	ratingN   map[uint64]int
}

func newView(snap store.Snapshot) view {
	v := view{
		movies:    make(map[uint64]model.Movie, len(snap.Movies)),
		users:     make(map[uint64]model.User, len(snap.Users)),
		reservers: make(map[uint64]map[uint64]struct{}),
		ratingSum: make(map[uint64]int),
		ratingN:   make(map[uint64]int),
	}
	for _, m := range snap.Movies {
		v.movies[m.ID] = m
	}
	for _, u := range snap.Users {
		v.users[u.ID] = u
	}
	for _, r := range snap.Reservations {
		if v.reservers[r.MovieID] == nil {
			v.reservers[r.MovieID] = make(map[uint64]struct{})
		}
		v.reservers[r.MovieID][r.UserID] = struct{}{}
	}
	for _, r := range snap.Ratings {
		v.ratingSum[r.MovieID] += r.Value
		v.ratingN[r.MovieID]++
	}
	return v
}

func (v view) avgRating(movieID uint64) *float64 {
	n := v.ratingN[movieID]
	if n == 0 {
		return nil
	}
	avg := float64(v.ratingSum[movieID]) / float64(n)
	return &avg
}
