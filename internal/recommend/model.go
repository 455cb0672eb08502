package recommend

import (
	"github.com/iliyamo/cinema-booking/internal/pricing"
	"github.com/iliyamo/cinema-booking/internal/store"
)

// cfModel is the item-based collaborative filtering state derived from
// one snapshot.
type cfModel struct {
	movieIDs []uint64
	userRow  map[uint64]int
	// rated marks users whose ratings entered the matrix
	rated map[uint64]bool

	ratings    *Matrix // raw ratings, 0 where unrated
	filled     *Matrix // unrated cells replaced by the column mean
	similarity *Matrix
}

// buildModel lays out every user as a row and every movie as a column,
// both in ascending id order, and derives the similarity matrix:
//
//  1. column means over rated cells, rounded to 2 decimals
//  2. filled = ratings with zeros replaced by the column mean
//  3. mu = mean(filled) rounded to 4 decimals, centred = filled − mu
//  4. similarity = centredᵗ·centred / outer(norms, norms), rounded to 4
//
// Only users whose ratings sum to a positive value contribute ratings.
func buildModel(snap store.Snapshot) *cfModel {
	cf := &cfModel{
		movieIDs: make([]uint64, len(snap.Movies)),
		userRow:  make(map[uint64]int, len(snap.Users)),
		rated:    make(map[uint64]bool),
	}
	movieCol := make(map[uint64]int, len(snap.Movies))
	for j, m := range snap.Movies {
		cf.movieIDs[j] = m.ID
		movieCol[m.ID] = j
	}
	for i, u := range snap.Users {
		cf.userRow[u.ID] = i
	}

	sums := make(map[uint64]int)
	for _, r := range snap.Ratings {
		sums[r.UserID] += r.Value
	}
	cf.ratings = NewMatrix(len(snap.Users), len(snap.Movies))
	for _, r := range snap.Ratings {
		if sums[r.UserID] <= 0 {
			continue
		}
		cf.ratings.Set(cf.userRow[r.UserID], movieCol[r.MovieID], float64(r.Value))
		cf.rated[r.UserID] = true
	}

	cf.filled = cf.ratings.FillZeros(cf.ratings.NonZeroColumnMeans(meanPlaces))
	mu := pricing.Round(cf.filled.Mean(), similarityPlaces)
	centred := cf.filled.SubScalar(mu)
	cf.similarity = centred.Gram().Cosine(centred.ColumnNorms(), similarityPlaces)
	return cf
}

// predict estimates the rating of the user in row for the movie in col
// as the similarity-weighted average of the user's filled ratings of
// every other movie.  A zero weight sum predicts 0.
func (cf *cfModel) predict(row, col int) float64 {
	_, cols := cf.filled.Dims()
	num, den := 0.0, 0.0
	for o := 0; o < cols; o++ {
		if o == col {
			continue
		}
		w := cf.similarity.At(col, o)
		num += cf.filled.At(row, o) * w
		den += w
	}
	if den == 0 {
		return 0
	}
	return pricing.Round(num/den, predictPlaces)
}
