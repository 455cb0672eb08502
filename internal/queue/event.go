// Package queue defines the activity events exchanged over RabbitMQ
// and the consumer that records them.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	MovieInserted  = "movie.inserted"
	MovieRemoved   = "movie.removed"
	UserInserted   = "user.inserted"
	UserRemoved    = "user.removed"
	MovieBooked    = "movie.booked"
	MovieRated     = "movie.rated"
	CatalogueReset = "catalogue.reset"
)

// ActivityEvent is published after every accepted catalogue mutation.
// Only the fields relevant to Type are set.
type ActivityEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	MovieID    *uint64   `json:"movie_id,omitempty"`
	UserID     *uint64   `json:"user_id,omitempty"`
	Price      *float64  `json:"price,omitempty"`
	Rating     *int      `json:"rating,omitempty"`
	Operator   string    `json:"operator,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent returns an event of the given type with a fresh id and the
// current time.
func NewEvent(typ string) ActivityEvent {
	return ActivityEvent{ID: uuid.NewString(), Type: typ, OccurredAt: time.Now().UTC()}
}

func (e ActivityEvent) WithMovie(id uint64) ActivityEvent {
	e.MovieID = &id
	return e
}

func (e ActivityEvent) WithUser(id uint64) ActivityEvent {
	e.UserID = &id
	return e
}

func (e ActivityEvent) WithPrice(p float64) ActivityEvent {
	e.Price = &p
	return e
}

func (e ActivityEvent) WithRating(r int) ActivityEvent {
	e.Rating = &r
	return e
}

func (e ActivityEvent) WithOperator(name string) ActivityEvent {
	e.Operator = name
	return e
}
