package query

import (
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/store"
)

// snapshotIndex groups a snapshot by entity id.  Because snapshot
// slices are sorted by (movie id, user id), the per-movie groups come
// out ordered by user id; the per-user groups are ordered by movie id
// for the same reason.
type snapshotIndex struct {
	movies              map[uint64]model.Movie
	users               map[uint64]model.User
	reservationsByMovie map[uint64][]model.Reservation
	reservationsByUser  map[uint64][]model.Reservation
	ratingsByMovie      map[uint64][]int
	ratings             map[model.Key]int
}

func index(snap store.Snapshot) snapshotIndex {
	idx := snapshotIndex{
		movies:              make(map[uint64]model.Movie, len(snap.Movies)),
		users:               make(map[uint64]model.User, len(snap.Users)),
		reservationsByMovie: make(map[uint64][]model.Reservation),
		reservationsByUser:  make(map[uint64][]model.Reservation),
		ratingsByMovie:      make(map[uint64][]int),
		ratings:             make(map[model.Key]int, len(snap.Ratings)),
	}
	for _, m := range snap.Movies {
		idx.movies[m.ID] = m
	}
	for _, u := range snap.Users {
		idx.users[u.ID] = u
	}
	for _, r := range snap.Reservations {
		idx.reservationsByMovie[r.MovieID] = append(idx.reservationsByMovie[r.MovieID], r)
		idx.reservationsByUser[r.UserID] = append(idx.reservationsByUser[r.UserID], r)
	}
	for _, r := range snap.Ratings {
		idx.ratingsByMovie[r.MovieID] = append(idx.ratingsByMovie[r.MovieID], r.Value)
		idx.ratings[r.Key()] = r.Value
	}
	return idx
}

func (idx snapshotIndex) rating(k model.Key) *int {
	v, ok := idx.ratings[k]
	if !ok {
		return nil
	}
	return &v
}

func average(values []int) *float64 {
	if len(values) == 0 {
		return nil
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	avg := float64(sum) / float64(len(values))
	return &avg
}
