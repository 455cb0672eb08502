package model

// Key identifies a reservation and the rating attached to it.  A
// rating always shares the key of the reservation it belongs to.
type Key struct {
	MovieID uint64 `json:"movie_id"`
	UserID  uint64 `json:"user_id"`
}

// Reservation records that a user booked a movie.  Price is the
// amount charged after the tier discount and is fixed at booking
// time; later changes to the movie or the pricing policy never
// re-derive it.
//
// Fields:
//  MovieID – booked movie.
//  UserID  – booking user.
//  Price   – reservation price, rounded to 4 decimal places.
type Reservation struct {
	MovieID uint64  `json:"movie_id"`
	UserID  uint64  `json:"user_id"`
	Price   float64 `json:"reservation_price"`
}

// Key returns the composite key of r.
func (r Reservation) Key() Key { return Key{MovieID: r.MovieID, UserID: r.UserID} }

// Rating is a score given by a user to a movie they reserved.
//
// Fields:
//  MovieID – rated movie.
//  UserID  – rating user.
//  Value   – score within [MinRating, MaxRating].
type Rating struct {
	MovieID uint64 `json:"movie_id"`
	UserID  uint64 `json:"user_id"`
	Value   int    `json:"rating"`
}

// Key returns the composite key of r.
func (r Rating) Key() Key { return Key{MovieID: r.MovieID, UserID: r.UserID} }

// Rating bounds, inclusive.
const (
	MinRating = 1
	MaxRating = 5
)
