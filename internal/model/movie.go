package model

// Movie is a film that customers can book and rate.  Titles are
// unique across the catalogue and the base price is an integer in
// the range [MinMoviePrice, MaxMoviePrice].  Movies are never
// updated in place; they are created, and later removed explicitly
// or by a reset.
//
// Fields:
//  ID       – identifier assigned by the store on creation.
//  Title    – unique movie title.
//  Director – free text.
//  Price    – base ticket price before any tier discount.
type Movie struct {
	ID       uint64 `json:"id"`
	Title    string `json:"title"`
	Director string `json:"director"`
	Price    int    `json:"price"`
}

// Price bounds for a movie, inclusive.
const (
	MinMoviePrice = 0
	MaxMoviePrice = 100000
)

// MovieCapacity is the number of distinct users that may hold a
// reservation for the same movie.
const MovieCapacity = 10
