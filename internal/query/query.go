// Package query provides the read-only listings over the store: the
// movie catalogue with booking aggregates, the customer list and the
// per-movie / per-customer reservation views.  Every call works on a
// single store snapshot, so a listing never mixes state from before
// and after a concurrent mutation.
package query

import (
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/store"
)

// Source is the part of the store the facade reads from.
type Source interface {
	Snapshot() store.Snapshot
}

// Facade answers the fixed set of listing queries.
type Facade struct {
	src Source
}

// New returns a Facade reading from src.
func New(src Source) *Facade { return &Facade{src: src} }

// MovieRow is one line of the catalogue listing.  AvgPrice and
// AvgRating are nil when the movie has no reservations or ratings.
type MovieRow struct {
	ID           uint64   `json:"id"`
	Title        string   `json:"title"`
	Director     string   `json:"director"`
	Price        int      `json:"price"`
	AvgPrice     *float64 `json:"avg_price"`
	Reservations int      `json:"reservations"`
	AvgRating    *float64 `json:"avg_rating"`
}

// UserBookingRow describes one customer who reserved a given movie.
type UserBookingRow struct {
	ID               uint64  `json:"id"`
	Name             string  `json:"name"`
	Age              int     `json:"age"`
	ReservationPrice float64 `json:"reservation_price"`
	Rating           *int    `json:"rating"`
}

// MovieBookingRow describes one movie reserved by a given customer.
type MovieBookingRow struct {
	ID               uint64  `json:"id"`
	Title            string  `json:"title"`
	Director         string  `json:"director"`
	ReservationPrice float64 `json:"reservation_price"`
	Rating           *int    `json:"rating"`
}

// ListMovies returns every movie ordered by id with its average
// reservation price, distinct reserver count and average rating.
func (f *Facade) ListMovies() []MovieRow {
	snap := f.src.Snapshot()
	idx := index(snap)

	rows := make([]MovieRow, 0, len(snap.Movies))
	for _, m := range snap.Movies {
		row := MovieRow{ID: m.ID, Title: m.Title, Director: m.Director, Price: m.Price}
		res := idx.reservationsByMovie[m.ID]
		row.Reservations = len(res)
		if len(res) > 0 {
			sum := 0.0
			for _, r := range res {
				sum += r.Price
			}
			avg := sum / float64(len(res))
			row.AvgPrice = &avg
		}
		row.AvgRating = average(idx.ratingsByMovie[m.ID])
		rows = append(rows, row)
	}
	return rows
}

// ListUsers returns every user ordered by id.
func (f *Facade) ListUsers() []model.User {
	return f.src.Snapshot().Users
}

// UsersForMovie lists the customers holding a reservation for movieID,
// ordered by user id.
func (f *Facade) UsersForMovie(movieID uint64) ([]UserBookingRow, error) {
	snap := f.src.Snapshot()
	idx := index(snap)
	if _, ok := idx.movies[movieID]; !ok {
		return nil, model.MovieNotFound(movieID)
	}
	rows := make([]UserBookingRow, 0, len(idx.reservationsByMovie[movieID]))
	for _, r := range idx.reservationsByMovie[movieID] {
		u := idx.users[r.UserID]
		rows = append(rows, UserBookingRow{
			ID:               u.ID,
			Name:             u.Name,
			Age:              u.Age,
			ReservationPrice: r.Price,
			Rating:           idx.rating(r.Key()),
		})
	}
	return rows, nil
}

// MoviesForUser lists the movies reserved by userID, ordered by movie
// id.
func (f *Facade) MoviesForUser(userID uint64) ([]MovieBookingRow, error) {
	snap := f.src.Snapshot()
	idx := index(snap)
	if _, ok := idx.users[userID]; !ok {
		return nil, model.UserNotFound(userID)
	}
	rows := make([]MovieBookingRow, 0, len(idx.reservationsByUser[userID]))
	for _, r := range idx.reservationsByUser[userID] {
		m := idx.movies[r.MovieID]
		rows = append(rows, MovieBookingRow{
			ID:               m.ID,
			Title:            m.Title,
			Director:         m.Director,
			ReservationPrice: r.Price,
			Rating:           idx.rating(r.Key()),
		})
	}
	return rows, nil
}

// Stats holds entity totals.
type Stats struct {
	Movies       int `json:"movies"`
	Users        int `json:"users"`
	Reservations int `json:"reservations"`
	Ratings      int `json:"ratings"`
}

// Stats counts the entities of one snapshot.
func (f *Facade) Stats() Stats {
	snap := f.src.Snapshot()
	return Stats{
		Movies:       len(snap.Movies),
		Users:        len(snap.Users),
		Reservations: len(snap.Reservations),
		Ratings:      len(snap.Ratings),
	}
}
